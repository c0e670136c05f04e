// openapi.go — валидация входящих запросов по OpenAPI контракту.
// Проверяются path и query параметры. Тела запросов (multipart)
// не валидируются: загрузка читается потоково в handlers.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/goartstore/media-service/internal/api/errors"
)

// OpenAPIValidator возвращает middleware валидации запросов.
// Запросы к путям вне контракта пропускаются без проверки:
// на них отвечает роутер (404/405).
func OpenAPIValidator(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания OpenAPI роутера: %w", err)
	}

	log := logger.With(slog.String("component", "openapi_validator"))
	options := &openapi3filter.Options{
		ExcludeRequestBody: true,
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if !isRouteNotFound(err) {
					log.Warn("Ошибка поиска маршрута в контракте",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				msg := validationMessage(err)
				log.Debug("Запрос не прошёл валидацию",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", msg),
				)
				apierrors.ValidationError(w, msg)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// validationMessage формирует сообщение об ошибке валидации.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		reason := reqErr.Reason
		if reqErr.Err != nil {
			reason = reqErr.Err.Error()
		}
		return fmt.Sprintf("Некорректный параметр %s: %s", reqErr.Parameter.Name, reason)
	}
	return "Некорректный запрос: " + err.Error()
}

// isRouteNotFound сообщает, что путь или метод отсутствуют в контракте.
func isRouteNotFound(err error) bool {
	if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
		return true
	}
	// Роутер может вернуть новый экземпляр RouteError с тем же текстом
	var routeErr *routers.RouteError
	if errors.As(err, &routeErr) {
		return routeErr.Reason == routers.ErrPathNotFound.Error() ||
			routeErr.Reason == routers.ErrMethodNotAllowed.Error()
	}
	return false
}
