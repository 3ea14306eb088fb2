package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	libdb "utilitybill/backend/libs/db"
	"utilitybill/backend/services/bill-service/internal/models"
)

var (
	// ErrRuleNotFound is returned when the configurations row has not been written yet.
	ErrRuleNotFound = errors.New("billing rule not found")
	// ErrCredentialNotFound is returned when no admin PIN has been set.
	ErrCredentialNotFound = errors.New("admin credential not found")
	// ErrNotProvisioned is returned when the backing tables do not exist.
	ErrNotProvisioned = errors.New("storage schema not provisioned")
)

// ConfigRepository stores the singleton rule and credential rows in Postgres.
type ConfigRepository struct {
	db *sql.DB
}

// NewConfigRepository returns repository instance.
func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetRule fetches the active billing rule.
func (r *ConfigRepository) GetRule(ctx context.Context) (*models.BillingRule, error) {
	const query = `
		SELECT rate_per_unit, vat_percentage, fixed_service_charge, updated_at
		FROM configurations
		WHERE id = $1
	`
	var rule models.BillingRule
	err := r.db.QueryRowContext(ctx, query, models.SingletonID).Scan(
		&rule.RatePerUnit,
		&rule.VATPercentage,
		&rule.FixedServiceCharge,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err, ErrRuleNotFound, "get rule")
	}
	return &rule, nil
}

// UpsertRule replaces the singleton rule row in a single statement.
func (r *ConfigRepository) UpsertRule(ctx context.Context, rule *models.BillingRule) error {
	const query = `
		INSERT INTO configurations (id, rate_per_unit, vat_percentage, fixed_service_charge, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			rate_per_unit = EXCLUDED.rate_per_unit,
			vat_percentage = EXCLUDED.vat_percentage,
			fixed_service_charge = EXCLUDED.fixed_service_charge,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		models.SingletonID,
		rule.RatePerUnit,
		rule.VATPercentage,
		rule.FixedServiceCharge,
	).Scan(&rule.UpdatedAt)
	if err != nil {
		return classify(err, nil, "upsert rule")
	}
	return nil
}

// GetCredential fetches the stored admin PIN hash.
func (r *ConfigRepository) GetCredential(ctx context.Context) (*models.AdminCredential, error) {
	const query = `
		SELECT pin_hash, updated_at
		FROM admin_security
		WHERE id = $1
	`
	var cred models.AdminCredential
	if err := r.db.QueryRowContext(ctx, query, models.SingletonID).Scan(&cred.PINHash, &cred.UpdatedAt); err != nil {
		return nil, classify(err, ErrCredentialNotFound, "get credential")
	}
	return &cred, nil
}

// UpsertCredential creates or overwrites the admin PIN hash.
func (r *ConfigRepository) UpsertCredential(ctx context.Context, cred *models.AdminCredential) error {
	const query = `
		INSERT INTO admin_security (id, pin_hash, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			pin_hash = EXCLUDED.pin_hash,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, models.SingletonID, cred.PINHash).Scan(&cred.UpdatedAt); err != nil {
		return classify(err, nil, "upsert credential")
	}
	return nil
}

func classify(err error, notFound error, op string) error {
	switch {
	case notFound != nil && errors.Is(err, sql.ErrNoRows):
		return notFound
	case libdb.IsUndefinedTable(err):
		return fmt.Errorf("%s: %w", op, ErrNotProvisioned)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
