// README: Router tests for authentication and role gating.
package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deliverycity/internal/session"
)

const secret = "test-secret"

// buildTestRouter wires the full route table without backing services. All
// assertions here fail before any service method would run.
func buildTestRouter() http.Handler {
	return NewRouter(RouterDeps{JWTSecret: secret})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func issue(t *testing.T, role session.Role) string {
	t.Helper()
	tok, err := session.Issue(secret, "user-1", role, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestHealthIsPublic(t *testing.T) {
	h := buildTestRouter()
	w := doRequest(t, h, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("health: status = %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := buildTestRouter()
	paths := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/courier/offers"},
		{http.MethodPost, "/api/restaurant/orders/ORD-1/accept"},
		{http.MethodPost, "/api/admin/couriers/c1/approve"},
	}
	for _, p := range paths {
		w := doRequest(t, h, p.method, p.path, nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d", p.method, p.path, w.Code)
		}
	}
}

func TestRoleGating(t *testing.T) {
	h := buildTestRouter()
	courierToken := issue(t, session.RoleCourier)

	// A courier token cannot hit customer, restaurant, or admin routes.
	for _, p := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/customer/addresses"},
		{http.MethodPost, "/api/restaurant/orders/ORD-1/ready"},
		{http.MethodPost, "/api/admin/couriers/c1/block"},
		{http.MethodPost, "/api/admin/couriers/c1/balance"},
	} {
		w := doRequest(t, h, p.method, p.path, nil, courierToken)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s with courier token: status = %d", p.method, p.path, w.Code)
		}
	}
}

func TestCheckoutRejectsInvalidJSON(t *testing.T) {
	h := buildTestRouter()
	tok := issue(t, session.RoleCustomer)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json: status = %d", w.Code)
	}
}

func TestVerifyRequiresCode(t *testing.T) {
	h := buildTestRouter()
	tok := issue(t, session.RoleCourier)

	w := doRequest(t, h, http.MethodPost, "/api/courier/orders/ORD-1/pickup", map[string]any{}, tok)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty code: status = %d", w.Code)
	}
}
