package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ---- shared helpers ----

// mockUnitOfWork runs fn inline and records how each unit ended.
type mockUnitOfWork struct {
	commits   int
	rollbacks int
	readOnly  int
}

func (m *mockUnitOfWork) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

func (m *mockUnitOfWork) WithinReadOnlyTransaction(ctx context.Context, fn func(context.Context) error) error {
	m.readOnly++
	return fn(ctx)
}

func doRequest(router http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	switch b := body.(type) {
	case nil:
	case string:
		req, _ = http.NewRequest(method, url, strings.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, _ := json.Marshal(b)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v; body: %s", err, w.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uw := &mockUnitOfWork{}
	router := NewRouter(zap.NewNop(),
		NewUserHandler(uw, &mockUserCommander{}, &mockUserQuerier{}),
		NewTransactionHandler(uw, &mockTransactionCommander{}, &mockTransactionQuerier{}),
	)

	w := doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if got := decodeBody(t, w)["status"]; got != "ok" {
		t.Errorf("expected status ok, got %v", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}
