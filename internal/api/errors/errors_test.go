package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestWriteError проверяет формат тела и заголовки ответа.
func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"validation", func(w http.ResponseWriter) { ValidationError(w, "плохой запрос") }, http.StatusBadRequest, CodeValidationError},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "нет") }, http.StatusNotFound, CodeNotFound},
		{"method", func(w http.ResponseWriter) { MethodNotAllowed(w, "нет") }, http.StatusMethodNotAllowed, CodeMethodNotAllowed},
		{"too large", func(w http.ResponseWriter) { FileTooLarge(w, "много") }, http.StatusRequestEntityTooLarge, CodeFileTooLarge},
		{"reconcile", func(w http.ResponseWriter) { ReconcileInProgress(w, "занято") }, http.StatusConflict, CodeReconcileInProgress},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "сбой") }, http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var body errorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("ошибка декодирования тела: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, ожидался %q", body.Error.Code, tt.wantCode)
			}
			if body.Error.Message == "" {
				t.Error("message не должен быть пустым")
			}
		})
	}
}
