package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware("secret-key", discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret-key", http.StatusUnauthorized},
		{"wrong key", "Bearer other-key", http.StatusUnauthorized},
		{"valid", "Bearer secret-key", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
		}
		if tc.status == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"error"`) {
			t.Errorf("%s: rejection body is not a json error: %s", tc.name, rec.Body.String())
		}
	}
}

func TestStatusWriterCapturesOutcome(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.WriteHeader(http.StatusTeapot)
	sw.Write([]byte("short and stout"))

	if sw.status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", sw.status, http.StatusTeapot)
	}
	if sw.bytes != len("short and stout") {
		t.Errorf("bytes = %d, want %d", sw.bytes, len("short and stout"))
	}
}
