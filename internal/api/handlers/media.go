// media.go — обработчики endpoints медиафайлов:
// загрузка, список, метаданные, скачивание, удаление.
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/bigkaa/goartstore/media-service/internal/api/errors"
	"github.com/bigkaa/goartstore/media-service/internal/api/routes"
	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
	"github.com/bigkaa/goartstore/media-service/internal/service"
)

// formFileField — имя поля multipart с файлом.
const formFileField = "file"

// emptyFileMessage — ответ на загрузку файла нулевой длины.
const emptyFileMessage = "Файл пуст, выберите файл для загрузки"

// multipartOverhead — запас на заголовки и границы multipart
// сверх лимита размера файла.
const multipartOverhead = 1 << 20

// defaultContentType — MIME-тип части без заголовка Content-Type.
const defaultContentType = "application/octet-stream"

// MediaStore — операции фасада хранилища, нужные обработчикам.
// Реализуется *service.MediaService.
type MediaStore interface {
	Store(ctx context.Context, params service.StoreParams) (*model.MediaRecord, error)
	FetchBytes(ctx context.Context, id int64) (io.ReadCloser, *model.MediaRecord, error)
	FetchMetadata(ctx context.Context, id int64) (*model.MediaRecord, error)
	List(ctx context.Context, kind *model.Kind) ([]*model.MediaRecord, error)
	Delete(ctx context.Context, id int64) error
}

// MediaFileResponse — представление записи в API.
type MediaFileResponse struct {
	ID               int64     `json:"id"`
	FileName         string    `json:"fileName"`
	OriginalFileName string    `json:"originalFileName"`
	FileType         string    `json:"fileType"`
	ContentType      string    `json:"contentType"`
	FileSize         int64     `json:"fileSize"`
	UploadedAt       time.Time `json:"uploadedAt"`
	DownloadURL      string    `json:"downloadUrl"`
}

// UploadResponse — ответ endpoints загрузки и удаления.
type UploadResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message"`
	MediaFile *MediaFileResponse `json:"mediaFile,omitempty"`
}

// MediaHandler — обработчик endpoints медиафайлов.
type MediaHandler struct {
	media         MediaStore
	maxFileSize   int64
	publicBaseURL string
	logger        *slog.Logger
}

// NewMediaHandler создаёт обработчик медиафайлов.
// publicBaseURL — база для downloadUrl; пустая строка — схема и хост запроса.
func NewMediaHandler(media MediaStore, maxFileSize int64, publicBaseURL string, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:         media,
		maxFileSize:   maxFileSize,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With(slog.String("component", "media_handler")),
	}
}

// UploadImage обрабатывает POST /api/media/upload/image.
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.KindImage)
}

// UploadVideo обрабатывает POST /api/media/upload/video.
func (h *MediaHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.KindVideo)
}

// upload читает multipart поток и передаёт файл в хранилище.
//
// Тело не буферизуется: часть "file" передаётся в Store напрямую.
// Content-Type берётся из заголовка части и должен начинаться
// с image/ или video/ в зависимости от endpoint. Пустая часть
// отклоняется до проверки Content-Type.
func (h *MediaHandler) upload(w http.ResponseWriter, r *http.Request, kind model.Kind) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeUpload(w, http.StatusBadRequest, "Ожидается multipart/form-data: "+err.Error())
		return
	}

	part, err := nextFilePart(mr)
	if err != nil {
		if isTooLarge(err) {
			writeUpload(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		writeUpload(w, http.StatusBadRequest, err.Error())
		return
	}
	defer part.Close()

	body := bufio.NewReader(part)
	if _, err := body.Peek(1); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			writeUpload(w, http.StatusBadRequest, emptyFileMessage)
		case isTooLarge(err):
			writeUpload(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		default:
			writeUpload(w, http.StatusBadRequest, "Ошибка чтения файла: "+err.Error())
		}
		return
	}

	contentType := part.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	if !strings.HasPrefix(strings.ToLower(contentType), kindPrefix(kind)) {
		writeUpload(w, http.StatusBadRequest, fmt.Sprintf(
			"Недопустимый тип файла %q для категории %s", contentType, kind))
		return
	}

	rec, err := h.media.Store(r.Context(), service.StoreParams{
		Reader:       &limitedReader{r: body, remaining: h.maxFileSize, limit: h.maxFileSize},
		OriginalName: part.FileName(),
		ContentType:  contentType,
		Kind:         kind,
	})
	if err != nil {
		switch {
		case isTooLarge(err):
			writeUpload(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		case errors.Is(err, service.ErrValidation):
			writeUpload(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Ошибка загрузки файла",
				slog.String("kind", kind.String()),
				slog.String("error", err.Error()),
			)
			writeUpload(w, http.StatusInternalServerError, "Ошибка сохранения файла")
		}
		return
	}

	resp := UploadResponse{
		Success:   true,
		Message:   "Файл успешно загружен",
		MediaFile: h.toResponse(r, rec),
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMedia обрабатывает GET /api/media с необязательным фильтром kind.
func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request, params routes.ListMediaParams) {
	var kind *model.Kind
	if params.Kind != nil {
		k, err := model.ParseKind(*params.Kind)
		if err != nil {
			apierrors.ValidationError(w, err.Error())
			return
		}
		kind = &k
	}
	h.list(w, r, kind)
}

// ListImages обрабатывает GET /api/media/images.
func (h *MediaHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	kind := model.KindImage
	h.list(w, r, &kind)
}

// ListVideos обрабатывает GET /api/media/videos.
func (h *MediaHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	kind := model.KindVideo
	h.list(w, r, &kind)
}

func (h *MediaHandler) list(w http.ResponseWriter, r *http.Request, kind *model.Kind) {
	records, err := h.media.List(r.Context(), kind)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]MediaFileResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, *h.toResponse(r, rec))
	}
	writeJSON(w, http.StatusOK, items)
}

// GetMedia обрабатывает GET /api/media/{id}.
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request, id int64) {
	rec, err := h.media.FetchMetadata(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(r, rec))
}

// DownloadMedia обрабатывает GET /api/media/{id}/download.
// Отдаёт байты с сохранённым Content-Type и inline Content-Disposition.
func (h *MediaHandler) DownloadMedia(w http.ResponseWriter, r *http.Request, id int64) {
	body, rec, err := h.media.FetchBytes(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer body.Close()

	contentType := rec.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.OriginalName))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		// Заголовки уже отправлены, ответ оборван
		h.logger.Warn("Ошибка отдачи файла",
			slog.Int64("media_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteMedia обрабатывает DELETE /api/media/{id}.
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request, id int64) {
	err := h.media.Delete(r.Context(), id)
	switch {
	case err == nil:
		writeUpload(w, http.StatusOK, "Файл успешно удалён")
	case errors.Is(err, service.ErrNotFound):
		writeUpload(w, http.StatusNotFound, fmt.Sprintf("Медиафайл %d не найден", id))
	default:
		h.logger.Error("Ошибка удаления файла",
			slog.Int64("media_id", id),
			slog.String("error", err.Error()),
		)
		writeUpload(w, http.StatusInternalServerError, "Ошибка удаления файла")
	}
}

// writeServiceError переводит ошибку сервиса в ответ в едином формате.
func (h *MediaHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.Error("Ошибка обработки запроса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка хранилища")
	}
}

// toResponse формирует представление записи с downloadUrl.
func (h *MediaHandler) toResponse(r *http.Request, rec *model.MediaRecord) *MediaFileResponse {
	return &MediaFileResponse{
		ID:               rec.ID,
		FileName:         rec.StoredName,
		OriginalFileName: rec.OriginalName,
		FileType:         rec.Kind.String(),
		ContentType:      rec.ContentType,
		FileSize:         rec.SizeBytes,
		UploadedAt:       rec.UploadedAt,
		DownloadURL:      fmt.Sprintf("%s/api/media/%d/download", h.baseURL(r), rec.ID),
	}
}

// baseURL возвращает MS_PUBLIC_BASE_URL или схему и хост запроса.
func (h *MediaHandler) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (h *MediaHandler) tooLargeMessage() string {
	return fmt.Sprintf("Размер файла превышает лимит %d байт", h.maxFileSize)
}

// nextFilePart пропускает части формы до поля "file".
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("файл не передан (поле \"file\")")
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения multipart: %w", err)
		}
		if part.FormName() == formFileField {
			return part, nil
		}
		part.Close()
	}
}

// kindPrefix — допустимый префикс Content-Type для категории.
func kindPrefix(kind model.Kind) string {
	if kind == model.KindVideo {
		return "video/"
	}
	return "image/"
}

// isTooLarge сообщает, что запрос или файл превысили лимит размера.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// limitedReader возвращает *http.MaxBytesError, если поток длиннее лимита.
type limitedReader struct {
	r         io.Reader
	remaining int64
	limit     int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) <= l.remaining {
		l.remaining -= int64(n)
		return n, err
	}
	n = int(l.remaining)
	l.remaining = 0
	return n, &http.MaxBytesError{Limit: l.limit}
}

// writeUpload пишет UploadResponse без записи.
func writeUpload(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, UploadResponse{
		Success: status < http.StatusBadRequest,
		Message: message,
	})
}

// writeJSON сериализует тело ответа в JSON.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
