package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"utilitybill/backend/services/bill-service/internal/models"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Validator checks candidate rules and PINs, reporting fields by their JSON names.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator with decimal and PIN support registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	// Registration only fails on a duplicate or empty tag name.
	_ = v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return pinPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("dgt", decimalBound(func(c int) bool { return c > 0 }))
	_ = v.RegisterValidation("dgte", decimalBound(func(c int) bool { return c >= 0 }))
	_ = v.RegisterValidation("dlte", decimalBound(func(c int) bool { return c <= 0 }))
	return &Validator{validate: v}
}

// Rule validates the pricing bounds of a candidate rule.
func (v *Validator) Rule(rule models.BillingRule) error {
	err := v.validate.Struct(rule)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// PIN validates that pin is exactly four ASCII digits.
func (v *Validator) PIN(pin string) error {
	if err := v.validate.Var(pin, "required,pin"); err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "pin", Message: "must be exactly 4 digits"}}}
	}
	return nil
}

// decimalValue hands decimals to the validator as exact strings.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// decimalBound compares the field with the tag parameter without leaving decimal arithmetic.
func decimalBound(accept func(cmp int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return accept(value.Cmp(bound))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt", "dgt":
		return "must be greater than " + fe.Param()
	case "gte", "dgte":
		return "must be greater than or equal to " + fe.Param()
	case "lte", "dlte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}
