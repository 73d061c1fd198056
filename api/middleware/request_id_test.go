package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDPropagatesHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-123")

	RequestID(nil)(okHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected propagated id, got %q", got)
	}
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("a", maxRequestIDLength+1))

	RequestID(nil)(okHandler()).ServeHTTP(rec, req)

	got := rec.Header().Get(requestIDHeader)
	if got == "" || len(got) > maxRequestIDLength {
		t.Fatalf("expected minted id, got %q", got)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	Recoverer(nil)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"INTERNAL_ERROR"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
