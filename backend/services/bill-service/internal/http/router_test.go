package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"utilitybill/backend/services/bill-service/internal/http/handlers"
	"utilitybill/backend/services/bill-service/internal/http/middleware"
	"utilitybill/backend/services/bill-service/internal/metrics"
	"utilitybill/backend/services/bill-service/internal/password"
	"utilitybill/backend/services/bill-service/internal/repository"
	"utilitybill/backend/services/bill-service/internal/service"
)

type testAPI struct {
	handler http.Handler
	store   *repository.MemoryConfigRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.New()
	store := repository.NewMemoryConfigRepository(nil)
	validator := service.NewValidator()
	sessions := service.NewSessionService(service.NewTokenService("router-secret", time.Minute), service.NewMemoryRevocationList(), logger)
	credentials := service.NewCredentialService(store, password.NewBcryptHasher(bcrypt.MinCost), sessions, validator, m, logger)
	rules := service.NewRuleService(store, credentials, validator, nil, m, logger)
	bills := service.NewBillService(rules, m, logger)
	gate := service.NewAdminGate(rules, credentials)

	configHandlers := handlers.NewConfigHandlers(rules, logger)
	adminHandlers := handlers.NewAdminHandlers(credentials, sessions, gate, logger)

	router := NewRouter(Routes{
		Health:    handlers.NewHealthHandler(),
		Metrics:   m.Handler(),
		Calculate: handlers.NewCalculateHandler(bills, logger),
		GetConfig: configHandlers.Get,
		PutConfig: configHandlers.Put,
		GetPIN:    adminHandlers.GetPIN,
		SetPIN:    adminHandlers.SetPIN,
		Login:     adminHandlers.Login,
		Logout:    adminHandlers.Logout,
		State:     adminHandlers.State,
	}, m)

	server := NewServer(":0", router, logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORS([]string{"*"}),
	)
	return &testAPI{handler: server.Handler(), store: store}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = api.do(t, http.MethodDelete, "/api/config", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, PUT", rec.Header().Get("Allow"))
}

func TestCalculate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/calculate", map[string]interface{}{"units": 100}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"units":100,"subtotal":15,"vatAmount":0.75,"serviceCharge":10,"total":25.75}`, rec.Body.String())

	for _, body := range []string{`{"units":0}`, `{"units":-5}`, `{"units":"abc"}`, `{}`, `{"units":null}`} {
		rec = api.do(t, http.MethodPost, "/api/calculate", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec = api.do(t, http.MethodPost, "/api/calculate", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decode(t, rec)["error"])
}

func TestConfigLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/config", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "default", body["source"])
	assert.Equal(t, false, body["tableMissing"])
	assert.Equal(t, 0.15, body["ratePerUnit"])

	rec = api.do(t, http.MethodGet, "/api/config/pin", nil, nil)
	assert.JSONEq(t, `{"pinSet":false}`, rec.Body.String())

	rule := map[string]interface{}{"ratePerUnit": 0.2, "vatPercentage": 7.5, "fixedServiceCharge": 12}

	rec = api.do(t, http.MethodPut, "/api/config", rule, map[string]string{"x-admin-pin": "1234"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no pin stored yet")

	rec = api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "1234"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/config/pin", nil, nil)
	assert.JSONEq(t, `{"pinSet":true}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "1234")

	rec = api.do(t, http.MethodPut, "/api/config", rule, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "PIN is required", decode(t, rec)["error"])

	rec = api.do(t, http.MethodPut, "/api/config", rule, map[string]string{"x-admin-pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/config", rule, map[string]string{"x-admin-pin": "1234"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "Configuration updated successfully", body["message"])
	cfg := body["config"].(map[string]interface{})
	assert.Equal(t, 0.2, cfg["ratePerUnit"])
	assert.Equal(t, 7.5, cfg["vatPercentage"])
	assert.Equal(t, float64(12), cfg["fixedServiceCharge"])

	rec = api.do(t, http.MethodGet, "/api/config", nil, nil)
	body = decode(t, rec)
	assert.Equal(t, "database", body["source"])
	assert.Equal(t, 0.2, body["ratePerUnit"])

	rec = api.do(t, http.MethodPost, "/api/calculate", `{"units":100}`, nil)
	assert.Equal(t, float64(33.5), decode(t, rec)["total"])
}

func TestPutConfigValidation(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "1234"}, nil).Code)
	pin := map[string]string{"x-admin-pin": "1234"}

	rec := api.do(t, http.MethodPut, "/api/config", `{"ratePerUnit":0.2}`, pin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.Len(t, body["fields"], 2)

	rec = api.do(t, http.MethodPut, "/api/config", `{"ratePerUnit":0,"vatPercentage":101,"fixedServiceCharge":-1}`, pin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode(t, rec)["fields"], 3)

	for _, body := range []string{
		`{"ratePerUnit":1,"vatPercentage":100.00000000000000001,"fixedServiceCharge":0}`,
		`{"ratePerUnit":"1","vatPercentage":"100.00000000000000001","fixedServiceCharge":"0"}`,
		`{"ratePerUnit":0.0000000000000000000000,"vatPercentage":5,"fixedServiceCharge":0}`,
	} {
		rec = api.do(t, http.MethodPut, "/api/config", body, pin)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "validation failed", decode(t, rec)["error"])
	}

	rec = api.do(t, http.MethodPut, "/api/config", `{"ratePerUnit":1e-400,"vatPercentage":100,"fixedServiceCharge":0}`, pin)
	require.Equal(t, http.StatusOK, rec.Code, "tiny positive rate is accepted")

	stored, err := api.store.GetRule(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "100", stored.VATPercentage.String(), "out-of-range values never reached storage")
}

func TestPutConfigValidationLeavesStorageEmpty(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "1234"}, nil).Code)
	pin := map[string]string{"x-admin-pin": "1234"}

	rec := api.do(t, http.MethodPut, "/api/config", `{"ratePerUnit":1,"vatPercentage":100.00000000000000001,"fixedServiceCharge":0}`, pin)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := api.store.GetRule(t.Context())
	assert.ErrorIs(t, err, repository.ErrRuleNotFound, "rejected updates never reach storage")
}

func TestPINEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "12a4"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", decode(t, rec)["error"])

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "1234"}, nil).Code)

	rec = api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "5678"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "changing the pin requires the current one")

	rec = api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "5678"}, map[string]string{"x-admin-pin": "1234"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSessionFlow(t *testing.T) {
	api := newTestAPI(t)

	state := func(token string) string {
		headers := map[string]string{}
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		}
		rec := api.do(t, http.MethodGet, "/api/admin/state", nil, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		return decode(t, rec)["state"].(string)
	}

	assert.Equal(t, "no_credential", state(""))

	rec := api.do(t, http.MethodPost, "/api/admin/session", map[string]string{"pin": "1234"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "1234"}, nil).Code)
	assert.Equal(t, "credential_entry_pending", state(""))

	rec = api.do(t, http.MethodPost, "/api/admin/session", map[string]string{"pin": "9999"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/admin/session", map[string]string{"pin": "1234"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	token := body["token"].(string)
	assert.Equal(t, "Bearer", body["tokenType"])
	assert.Equal(t, "unlocked", state(token))

	auth := map[string]string{"Authorization": "Bearer " + token}
	rec = api.do(t, http.MethodPut, "/api/config", map[string]interface{}{"ratePerUnit": 1, "vatPercentage": 0, "fixedServiceCharge": 0}, auth)
	assert.Equal(t, http.StatusOK, rec.Code, "session token authorizes writes")

	rec = api.do(t, http.MethodDelete, "/api/admin/session", nil, auth)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "credential_entry_pending", state(token))

	rec = api.do(t, http.MethodPut, "/api/config", map[string]interface{}{"ratePerUnit": 2, "vatPercentage": 0, "fixedServiceCharge": 0}, auth)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked session no longer authorizes writes")

	rec = api.do(t, http.MethodDelete, "/api/admin/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPINChangeEndsExistingSessions(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "1234"}, nil).Code)

	rec := api.do(t, http.MethodPost, "/api/admin/session", map[string]string{"pin": "1234"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	auth := map[string]string{"Authorization": "Bearer " + decode(t, rec)["token"].(string)}

	rec = api.do(t, http.MethodPost, "/api/config/pin", map[string]string{"pin": "5678"}, map[string]string{"x-admin-pin": "1234"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/admin/state", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "credential_entry_pending", decode(t, rec)["state"])

	rec = api.do(t, http.MethodPut, "/api/config", map[string]interface{}{"ratePerUnit": 1, "vatPercentage": 0, "fixedServiceCharge": 0}, auth)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, err := api.store.GetRule(t.Context())
	assert.ErrorIs(t, err, repository.ErrRuleNotFound)
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/calculate", `{"units":10}`, nil)

	rec := api.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bill_calculations_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/calculate"`)
}
