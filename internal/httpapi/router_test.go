package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/config"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
	"github.com/posdenous/naviya-launcher-sub002/internal/service"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type decisionResult struct {
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
	ID           string `json:"id"`
	LocationTier string `json:"location_tier"`
}

func setupRouter(t *testing.T) *Router {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.Driver = "memory"
	cfg.Elder.UserID = "elder"
	cfg.Elder.Timezone = "UTC"
	cfg.Elder.AdvocateName = "Elder Rights Line"
	cfg.Elder.AdvocatePhone = "+49 800 1111"
	cfg.Elder.EmergencyNumber = "112"
	cfg.Worker.PoolSize = 1
	cfg.Worker.QueueSize = 64

	registry := prometheus.NewRegistry()
	svc, err := service.New(cfg, service.Dependencies{
		Store:    repository.NewMemoryStore().Store(),
		Registry: registry,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Stop() })

	return NewRouter(svc, registry, zap.NewNop())
}

func call(t *testing.T, r *Router, method, path string, body any) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func decision(t *testing.T, resp apiResponse) decisionResult {
	t.Helper()
	var d decisionResult
	require.NoError(t, json.Unmarshal(resp.Result, &d))
	return d
}

func addCaregiver(t *testing.T, r *Router) string {
	t.Helper()
	status, resp := call(t, r, http.MethodPost, apiPrefix+"/caregivers", map[string]any{
		"name":         "Anna",
		"contact":      "+49 30 1234567",
		"user_consent": true,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, resp.Code)
	d := decision(t, resp)
	require.Equal(t, "GRANTED", d.Outcome)
	return d.ID
}

func TestCaregiverRoutes(t *testing.T) {
	r := setupRouter(t)
	id := addCaregiver(t, r)

	status, resp := call(t, r, http.MethodGet, apiPrefix+"/caregivers", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Result), `"total":1`)

	status, resp = call(t, r, http.MethodGet, apiPrefix+"/caregivers/"+id, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Result), `"emergency_notifications":true`)
	assert.Contains(t, string(resp.Result), `"consent_review_due":false`)

	status, resp = call(t, r, http.MethodGet, apiPrefix+"/caregivers/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, ResultError, resp.Code)
	assert.Equal(t, "error", resp.Type)
}

func TestAddCaregiver_WithoutConsentIsWarning(t *testing.T) {
	r := setupRouter(t)
	status, resp := call(t, r, http.MethodPost, apiPrefix+"/caregivers", map[string]any{"name": "Anna"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "warning", resp.Type)
	assert.Equal(t, "DENIED", decision(t, resp).Outcome)
}

func TestPermissionRoutes(t *testing.T) {
	r := setupRouter(t)
	id := addCaregiver(t, r)
	base := apiPrefix + "/caregivers/" + id + "/permissions"

	_, resp := call(t, r, http.MethodPost, base, map[string]any{
		"permission":    "financialDataAccess",
		"user_consent":  true,
		"justification": strings.Repeat("very good reason ", 10),
	})
	assert.Equal(t, "DENIED", decision(t, resp).Outcome)

	_, resp = call(t, r, http.MethodPost, base, map[string]any{
		"permission":    "locationAccess",
		"user_consent":  true,
		"justification": "needed for emergency response",
	})
	d := decision(t, resp)
	assert.Equal(t, "GRANTED", d.Outcome)
	assert.Equal(t, "EMERGENCY_ONLY", d.LocationTier)

	status, resp := call(t, r, http.MethodGet, base+"/locationAccess", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"permission":"locationAccess","granted":true}`, string(resp.Result))

	status, _ = call(t, r, http.MethodDelete, base+"/locationAccess", nil)
	assert.Equal(t, http.StatusOK, status)
	_, resp = call(t, r, http.MethodGet, base+"/locationAccess", nil)
	assert.JSONEq(t, `{"permission":"locationAccess","granted":false}`, string(resp.Result))

	status, resp = call(t, r, http.MethodGet, base+"/bankPin", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ResultError, resp.Code)
}

func TestRemoveCaregiver_Idempotent(t *testing.T) {
	r := setupRouter(t)
	id := addCaregiver(t, r)

	for i := 0; i < 2; i++ {
		status, resp := call(t, r, http.MethodDelete, apiPrefix+"/caregivers/"+id+"?reason=moved+away", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, ResultSuccess, resp.Code)
	}

	_, resp := call(t, r, http.MethodGet, apiPrefix+"/caregivers", nil)
	assert.Contains(t, string(resp.Result), `"total":0`)
}

func TestConsentReviewAndFlags(t *testing.T) {
	r := setupRouter(t)
	id := addCaregiver(t, r)

	_, resp := call(t, r, http.MethodPost, apiPrefix+"/caregivers/"+id+"/consent-review", map[string]any{
		"user_consent": true,
		"responses":    []string{"I felt uncomfortable saying no"},
	})
	assert.Equal(t, "GRANTED", decision(t, resp).Outcome)

	status, resp := call(t, r, http.MethodGet, apiPrefix+"/flags?unresolved=true&severity=high", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items []struct {
			FlagID   string `json:"flag_id"`
			FlagType string `json:"flag_type"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "COERCION", list.Items[0].FlagType)

	_, resp = call(t, r, http.MethodGet, apiPrefix+"/risk", nil)
	assert.Contains(t, string(resp.Result), `"level":"MEDIUM"`)

	status, resp = call(t, r, http.MethodPost, apiPrefix+"/flags/"+list.Items[0].FlagID+"/resolve", map[string]any{
		"resolved_by": "advocate",
		"notes":       "spoke with the user",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Result), `"resolved":true`)

	_, resp = call(t, r, http.MethodGet, apiPrefix+"/risk?caregiver_id="+id, nil)
	assert.Contains(t, string(resp.Result), `"level":"NONE"`)

	status, _ = call(t, r, http.MethodGet, apiPrefix+"/flags?severity=extreme", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	_, resp = call(t, r, http.MethodGet, apiPrefix+"/audit/verify", nil)
	assert.Contains(t, string(resp.Result), `"valid":true`)
}

func TestLogBehavior(t *testing.T) {
	r := setupRouter(t)
	id := addCaregiver(t, r)

	status, resp := call(t, r, http.MethodPost, apiPrefix+"/caregivers/"+id+"/behavior", map[string]any{
		"action_type": "location_access",
		"context":     "map opened",
	})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Contains(t, string(resp.Result), `"frequency":1`)

	status, _ = call(t, r, http.MethodPost, apiPrefix+"/caregivers/"+id+"/behavior", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestContactRoutes(t *testing.T) {
	r := setupRouter(t)
	id := addCaregiver(t, r)

	_, resp := call(t, r, http.MethodGet, apiPrefix+"/contacts", nil)
	var list struct {
		Items []struct {
			ContactID       string `json:"contact_id"`
			ProtectionLevel string `json:"protection_level"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	require.Len(t, list.Items, 2)
	ids := map[string]string{}
	for _, c := range list.Items {
		ids[c.ProtectionLevel] = c.ContactID
	}

	_, resp = call(t, r, http.MethodPost, apiPrefix+"/contacts/"+ids["ADVOCATE_PROTECTED"]+"/caregiver-remove", map[string]any{"caregiver_id": id})
	assert.Equal(t, "BLOCKED", decision(t, resp).Outcome)
	_, resp = call(t, r, http.MethodPost, apiPrefix+"/contacts/"+ids["ADVOCATE_PROTECTED"]+"/caregiver-block", map[string]any{"caregiver_id": id})
	assert.Equal(t, "BLOCKED", decision(t, resp).Outcome)

	status, _ := call(t, r, http.MethodPost, apiPrefix+"/contacts/"+ids["ADVOCATE_PROTECTED"]+"/caregiver-remove", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	_, resp = call(t, r, http.MethodDelete, apiPrefix+"/contacts/"+ids["ADVOCATE_PROTECTED"], nil)
	assert.Equal(t, "NEEDS_CONFIRMATION", decision(t, resp).Outcome)

	status, resp = call(t, r, http.MethodDelete, apiPrefix+"/contacts/"+ids["EMERGENCY_PROTECTED"]+"?confirm=true", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, ResultError, resp.Code)

	_, resp = call(t, r, http.MethodPost, apiPrefix+"/contacts", map[string]any{"name": "Grandson", "phone": "+49 170 1"})
	assert.Equal(t, "ALLOWED", decision(t, resp).Outcome)
}

func TestContactRequestRoutes(t *testing.T) {
	r := setupRouter(t)
	id := addCaregiver(t, r)

	_, resp := call(t, r, http.MethodPost, apiPrefix+"/contacts/requests", map[string]any{
		"caregiver_id": id,
		"name":         "Dr. Weber",
		"phone":        "+49 30 555",
		"reason":       "family doctor",
	})
	d := decision(t, resp)
	require.Equal(t, "PENDING_APPROVAL", d.Outcome)

	_, resp = call(t, r, http.MethodGet, apiPrefix+"/contacts/requests", nil)
	assert.Contains(t, string(resp.Result), `"total":1`)

	_, resp = call(t, r, http.MethodPost, apiPrefix+"/contacts/requests/"+d.ID+"/respond", map[string]any{"approve": true})
	assert.Equal(t, "GRANTED", decision(t, resp).Outcome)

	status, _ := call(t, r, http.MethodPost, apiPrefix+"/contacts/requests/"+d.ID+"/respond", map[string]any{"approve": true})
	assert.Equal(t, http.StatusConflict, status)

	_, resp = call(t, r, http.MethodPost, apiPrefix+"/contacts/requests", map[string]any{
		"caregiver_id": id, "name": "Neighbour", "phone": "+49 30 777",
	})
	second := decision(t, resp)
	status, _ = call(t, r, http.MethodPost, apiPrefix+"/contacts/requests/"+second.ID+"/cancel", map[string]any{"caregiver_id": id})
	assert.Equal(t, http.StatusOK, status)
}

func TestMetricsAndMethodNotAllowed(t *testing.T) {
	r := setupRouter(t)
	addCaregiver(t, r)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "guardian_")

	req = httptest.NewRequest(http.MethodPut, apiPrefix+"/caregivers", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
