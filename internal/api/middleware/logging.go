// logging.go — middleware журнала HTTP-запросов медиасервиса через slog.
// Помимо статуса и длительности пишет шаблон маршрута, ID медиафайла
// и объём принятого тела загрузки.
package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// uploadPrefix — префикс endpoints загрузки.
const uploadPrefix = "/api/media/upload/"

// loggedResponse перехватывает статус и размер ответа.
type loggedResponse struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *loggedResponse) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *loggedResponse) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *loggedResponse) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// countingBody считает байты, фактически прочитанные обработчиком из тела.
type countingBody struct {
	io.ReadCloser
	read int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.read += int64(n)
	return n, err
}

// RequestLogger возвращает middleware, логирующий каждый HTTP-запрос.
//
// Для маршрутов с {id} в запись попадает media_id, для загрузок —
// upload_bytes (прочитано из тела) и declared_bytes (Content-Length).
// Уровень: INFO для 1xx-3xx, WARN для 4xx, ERROR для 5xx.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &loggedResponse{ResponseWriter: w, statusCode: http.StatusOK}

			var body *countingBody
			isUpload := r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, uploadPrefix)
			if isUpload && r.Body != nil {
				body = &countingBody{ReadCloser: r.Body}
				r.Body = body
			}

			next.ServeHTTP(wrapped, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			}

			// chi заполняет контекст маршрута по ходу обработки
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
				if id, err := strconv.ParseInt(rctx.URLParam("id"), 10, 64); err == nil {
					attrs = append(attrs, slog.Int64("media_id", id))
				}
			}

			if body != nil {
				attrs = append(attrs,
					slog.Int64("upload_bytes", body.read),
					slog.Int64("declared_bytes", r.ContentLength),
				)
			}

			logger.LogAttrs(r.Context(), statusLevel(wrapped.statusCode), "HTTP запрос", attrs...)
		})
	}
}

// statusLevel выбирает уровень записи по статус-коду ответа.
func statusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
