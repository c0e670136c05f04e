// Пакет routes — привязка HTTP-маршрутов media-service к обработчикам.
// Повторяет структуру серверного кода oapi-codegen (chi-server):
// ServerInterface, обёртка с разбором параметров, HandlerFromMux.
// Маршруты соответствуют api/openapi/openapi.yaml.
package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/media-service/internal/api/errors"
)

// ListMediaParams — query параметры GET /api/media.
type ListMediaParams struct {
	// Kind — фильтр по категории (image / video, регистр не важен)
	Kind *string `form:"kind,omitempty" json:"kind,omitempty"`
}

// ServerInterface — обработчики всех операций контракта.
type ServerInterface interface {
	// Загрузка изображения
	// (POST /api/media/upload/image)
	UploadImage(w http.ResponseWriter, r *http.Request)
	// Загрузка видео
	// (POST /api/media/upload/video)
	UploadVideo(w http.ResponseWriter, r *http.Request)
	// Список медиафайлов
	// (GET /api/media)
	ListMedia(w http.ResponseWriter, r *http.Request, params ListMediaParams)
	// Список изображений
	// (GET /api/media/images)
	ListImages(w http.ResponseWriter, r *http.Request)
	// Список видео
	// (GET /api/media/videos)
	ListVideos(w http.ResponseWriter, r *http.Request)
	// Метаданные медиафайла
	// (GET /api/media/{id})
	GetMedia(w http.ResponseWriter, r *http.Request, id int64)
	// Удаление медиафайла
	// (DELETE /api/media/{id})
	DeleteMedia(w http.ResponseWriter, r *http.Request, id int64)
	// Содержимое медиафайла
	// (GET /api/media/{id}/download)
	DownloadMedia(w http.ResponseWriter, r *http.Request, id int64)
	// Информация о сервисе
	// (GET /api/system/info)
	GetSystemInfo(w http.ResponseWriter, r *http.Request)
	// Запуск сверки
	// (POST /api/system/reconcile)
	Reconcile(w http.ResponseWriter, r *http.Request)
	// Liveness probe
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// Readiness probe
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// Prometheus метрики
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc — middleware отдельной операции.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper разбирает параметры запроса и вызывает обработчик.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError — параметр не удалось привести к типу контракта.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("некорректный формат параметра %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// UploadImage — обёртка POST /api/media/upload/image.
func (siw *ServerInterfaceWrapper) UploadImage(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.UploadImage))
}

// UploadVideo — обёртка POST /api/media/upload/video.
func (siw *ServerInterfaceWrapper) UploadVideo(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.UploadVideo))
}

// ListMedia — обёртка GET /api/media.
func (siw *ServerInterfaceWrapper) ListMedia(w http.ResponseWriter, r *http.Request) {
	var params ListMediaParams

	err := runtime.BindQueryParameter("form", true, false, "kind", r.URL.Query(), &params.Kind)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "kind", Err: err})
		return
	}

	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListMedia(w, r, params)
	}))
}

// ListImages — обёртка GET /api/media/images.
func (siw *ServerInterfaceWrapper) ListImages(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.ListImages))
}

// ListVideos — обёртка GET /api/media/videos.
func (siw *ServerInterfaceWrapper) ListVideos(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.ListVideos))
}

// GetMedia — обёртка GET /api/media/{id}.
func (siw *ServerInterfaceWrapper) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetMedia(w, r, id)
	}))
}

// DeleteMedia — обёртка DELETE /api/media/{id}.
func (siw *ServerInterfaceWrapper) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteMedia(w, r, id)
	}))
}

// DownloadMedia — обёртка GET /api/media/{id}/download.
func (siw *ServerInterfaceWrapper) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DownloadMedia(w, r, id)
	}))
}

// GetSystemInfo — обёртка GET /api/system/info.
func (siw *ServerInterfaceWrapper) GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetSystemInfo))
}

// Reconcile — обёртка POST /api/system/reconcile.
func (siw *ServerInterfaceWrapper) Reconcile(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Reconcile))
}

// HealthLive — обёртка GET /health/live.
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.HealthLive))
}

// HealthReady — обёртка GET /health/ready.
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.HealthReady))
}

// GetMetrics — обёртка GET /metrics.
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetMetrics))
}

// bindID разбирает path параметр {id}.
func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64

	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return 0, false
	}
	return id, true
}

// serve применяет middleware операции и вызывает обработчик.
func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, handler http.Handler) {
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// ChiServerOptions — параметры регистрации маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux регистрирует маршруты на существующем роутере.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

// HandlerWithOptions регистрирует маршруты с указанными параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = defaultErrorHandler
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}
	base := options.BaseURL

	r.Group(func(r chi.Router) {
		r.Post(base+"/api/media/upload/image", wrapper.UploadImage)
		r.Post(base+"/api/media/upload/video", wrapper.UploadVideo)
		r.Get(base+"/api/media", wrapper.ListMedia)
		r.Get(base+"/api/media/images", wrapper.ListImages)
		r.Get(base+"/api/media/videos", wrapper.ListVideos)
		r.Get(base+"/api/media/{id}", wrapper.GetMedia)
		r.Delete(base+"/api/media/{id}", wrapper.DeleteMedia)
		r.Get(base+"/api/media/{id}/download", wrapper.DownloadMedia)
		r.Get(base+"/api/system/info", wrapper.GetSystemInfo)
		r.Post(base+"/api/system/reconcile", wrapper.Reconcile)
		r.Get(base+"/health/live", wrapper.HealthLive)
		r.Get(base+"/health/ready", wrapper.HealthReady)
		r.Get(base+"/metrics", wrapper.GetMetrics)
	})

	return r
}

// defaultErrorHandler отвечает 400 в едином формате ошибок.
func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	apierrors.ValidationError(w, err.Error())
}
