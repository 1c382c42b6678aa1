package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CiviTrack/civitrack-back/api/auth"
	"github.com/CiviTrack/civitrack-back/services/match"
	"github.com/CiviTrack/civitrack-back/services/memstore"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) (*memstore.Store, *auth.JWTManager, func(*http.Request) (*http.Response, error)) {
	t.Helper()

	store := memstore.New()
	jwtManager := auth.NewJWTManager(testSecret)
	engine := workflow.NewEngine(store.Reports(), store.Staff(),
		match.Variations{"pothole": {"road_repair"}}, nil)
	gallery := workflow.NewGalleryWorkflow(store.Gallery(), store.Reports(), nil)

	server := NewServer(Deps{
		Engine:     engine,
		Gallery:    gallery,
		Staff:      store.Staff(),
		JWT:        jwtManager,
		RankingTTL: time.Second,
	})
	app := server.App()
	do := func(req *http.Request) (*http.Response, error) {
		return app.Test(req)
	}
	return store, jwtManager, do
}

func token(t *testing.T, m *auth.JWTManager, role auth.Role) string {
	t.Helper()
	tok, err := m.GenerateToken("64f000000000000000000001", "Tester", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func jsonReq(t *testing.T, method, target, bearer string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func decodeData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	var envelope struct {
		OK   bool            `json:"ok"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.OK)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	_, jwtManager, do := newTestApp(t)
	admin := token(t, jwtManager, auth.RoleAdmin)
	staff := token(t, jwtManager, auth.RoleStaff)

	// Citizen submits anonymously.
	resp, err := do(jsonReq(t, http.MethodPost, "/api/reports", "", map[string]interface{}{
		"title":         "Pothole on Main",
		"description":   "deep one",
		"category":      "pothole",
		"priority":      "high",
		"reporter_name": "Dana",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, resp, &created)
	assert.Equal(t, "pending", created.Status)

	// Admin registers a staff member.
	resp, err = do(jsonReq(t, http.MethodPost, "/api/staff", admin, map[string]interface{}{
		"name":           "Amira",
		"specialization": "pothole",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var staffCreated struct {
		ID string `json:"id"`
	}
	decodeData(t, resp, &staffCreated)

	// Rankings require the admin role.
	resp, err = do(jsonReq(t, http.MethodGet, "/api/staff/rankings?category=pothole", staff, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = do(jsonReq(t, http.MethodGet, "/api/staff/rankings?category=pothole", admin, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ranked []struct {
		StaffID string `json:"staff_id"`
		Match   string `json:"match"`
	}
	decodeData(t, resp, &ranked)
	require.Len(t, ranked, 1)
	assert.Equal(t, staffCreated.ID, ranked[0].StaffID)
	assert.Equal(t, "direct", ranked[0].Match)

	// Assign, progress, complete, approve.
	assignTarget := fmt.Sprintf("/api/reports/%s/assign", created.ID)
	resp, err = do(jsonReq(t, http.MethodPost, assignTarget, admin, map[string]interface{}{
		"staff_id": staffCreated.ID,
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assigned struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	}
	decodeData(t, resp, &assigned)
	assert.Equal(t, "assigned", assigned.Status)
	assert.Equal(t, 25, assigned.Progress)

	resp, err = do(jsonReq(t, http.MethodPost, fmt.Sprintf("/api/reports/%s/progress", created.ID), staff, map[string]interface{}{
		"percentage":      60,
		"description":     "half done",
		"expected_status": "assigned",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Stale expectation surfaces as 409.
	resp, err = do(jsonReq(t, http.MethodPost, fmt.Sprintf("/api/reports/%s/progress", created.ID), staff, map[string]interface{}{
		"percentage":      70,
		"expected_status": "assigned",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = do(jsonReq(t, http.MethodPost, fmt.Sprintf("/api/reports/%s/complete", created.ID), staff, map[string]interface{}{
		"completion_notes": "finished",
		"expected_status":  "in_progress",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = do(jsonReq(t, http.MethodPost, fmt.Sprintf("/api/reports/%s/approve", created.ID), admin, map[string]interface{}{
		"admin_notes": "good",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Replaying the approval is a 412, not a duplicate review.
	resp, err = do(jsonReq(t, http.MethodPost, fmt.Sprintf("/api/reports/%s/approve", created.ID), admin, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	// The assigned report left the pending view.
	resp, err = do(jsonReq(t, http.MethodGet, "/api/reports?filter=pending_assignment", "", nil))
	require.NoError(t, err)
	var pending []struct {
		ID string `json:"id"`
	}
	decodeData(t, resp, &pending)
	assert.Empty(t, pending)
}

func TestRejectWithoutReasonIs400(t *testing.T) {
	_, jwtManager, do := newTestApp(t)
	admin := token(t, jwtManager, auth.RoleAdmin)

	resp, err := do(jsonReq(t, http.MethodPost, "/api/reports", "", map[string]interface{}{
		"title":    "Broken light",
		"category": "streetlight",
	}))
	require.NoError(t, err)
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, resp, &created)

	resp, err = do(jsonReq(t, http.MethodPost, fmt.Sprintf("/api/reports/%s/reject", created.ID), admin, map[string]interface{}{}))
	require.NoError(t, err)
	// Validation fires before the review-state precondition.
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutatingRoutesRequireAuth(t *testing.T) {
	_, _, do := newTestApp(t)

	resp, err := do(jsonReq(t, http.MethodPost, "/api/reports/64f000000000000000000009/approve", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = do(jsonReq(t, http.MethodGet, "/api/reports?filter=needs_review", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGalleryRejectWithoutBodyIsValidationError(t *testing.T) {
	_, jwtManager, do := newTestApp(t)
	admin := token(t, jwtManager, auth.RoleAdmin)

	// No body at all: the missing reason surfaces as the workflow's own
	// validation error, not a body-parse failure.
	resp, err := do(jsonReq(t, http.MethodPost, "/api/gallery/64f000000000000000000009/reject", admin, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation_error", body.Code)
	assert.Contains(t, body.Error, "rejection_reason")
}

func TestUnknownReportIs404(t *testing.T) {
	_, jwtManager, do := newTestApp(t)
	admin := token(t, jwtManager, auth.RoleAdmin)

	resp, err := do(jsonReq(t, http.MethodPost, "/api/reports/64f000000000000000000009/approve", admin, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
