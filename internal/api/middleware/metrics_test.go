package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/media/42", "/api/media/{id}"},
		{"/api/media/42/download", "/api/media/{id}/download"},
		{"/api/media/42/unknown", "/api/media/{id}/other"},
		{"/api/media/images", "/api/media/images"},
		{"/api/media/upload/video", "/api/media/upload/video"},
		{"/api/media", "/api/media"},
		{"/health/ready", "/health/ready"},
		{"/api/media/", "/api/media/"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, хотели %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsMiddleware_PassesStatus(t *testing.T) {
	handler := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media/7", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("статус: хотели %d, получили %d", http.StatusTeapot, rec.Code)
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media/1", nil))

	if rec.Code != http.StatusNotFound || rec.Body.String() != "nope" {
		t.Errorf("ответ изменён middleware: %d %q", rec.Code, rec.Body.String())
	}
}
