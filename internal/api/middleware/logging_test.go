package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// captureLogger пишет JSON-записи в буфер.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loggedRouter — chi-роутер с RequestLogger и маршрутами медиафайлов.
func loggedRouter(buf *bytes.Buffer) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(captureLogger(buf)))
	r.Get("/api/media/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/api/media/upload/image", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// lastEntry разбирает единственную запись журнала.
func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("запись журнала не разобрана: %v (%s)", err, buf.String())
	}
	return entry
}

func TestRequestLogger_MediaID(t *testing.T) {
	var buf bytes.Buffer
	handler := loggedRouter(&buf)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/media/42", nil))

	entry := lastEntry(t, &buf)
	if entry["media_id"] != float64(42) {
		t.Errorf("media_id: хотели 42, получили %v", entry["media_id"])
	}
	if entry["route"] != "/api/media/{id}" {
		t.Errorf("route: хотели /api/media/{id}, получили %v", entry["route"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("уровень для 404: хотели WARN, получили %v", entry["level"])
	}
	if entry["component"] != "http" {
		t.Errorf("component: хотели http, получили %v", entry["component"])
	}
	if _, ok := entry["upload_bytes"]; ok {
		t.Error("upload_bytes не пишется для чтения")
	}
}

func TestRequestLogger_UploadBytes(t *testing.T) {
	var buf bytes.Buffer
	handler := loggedRouter(&buf)

	payload := strings.Repeat("x", 128)
	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/media/upload/image", strings.NewReader(payload)))

	entry := lastEntry(t, &buf)
	if entry["upload_bytes"] != float64(len(payload)) {
		t.Errorf("upload_bytes: хотели %d, получили %v", len(payload), entry["upload_bytes"])
	}
	if entry["declared_bytes"] != float64(len(payload)) {
		t.Errorf("declared_bytes: хотели %d, получили %v", len(payload), entry["declared_bytes"])
	}
	if _, ok := entry["media_id"]; ok {
		t.Error("media_id не пишется для загрузки")
	}
	if entry["level"] != "INFO" {
		t.Errorf("уровень: хотели INFO, получили %v", entry["level"])
	}
}

func TestStatusLevel(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusNotModified, slog.LevelInfo},
		{http.StatusRequestEntityTooLarge, slog.LevelWarn},
		{http.StatusServiceUnavailable, slog.LevelError},
	}

	for _, tt := range tests {
		if got := statusLevel(tt.status); got != tt.want {
			t.Errorf("statusLevel(%d) = %v, хотели %v", tt.status, got, tt.want)
		}
	}
}
