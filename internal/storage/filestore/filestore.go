// Пакет filestore — операции с физическими файлами на диске.
// Обеспечивает раскладку {root}/images, {root}/videos, атомарную
// запись (temp → fsync → rename), чтение и идемпотентное удаление.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

// ErrNotFound — файл отсутствует или недоступен для чтения.
var ErrNotFound = errors.New("файл не найден")

// ErrOutsideRoot — путь указывает за пределы корня хранилища.
var ErrOutsideRoot = errors.New("путь вне корневой директории хранилища")

// ErrRelativePath — путь к сохранённому файлу не абсолютный.
var ErrRelativePath = errors.New("ожидается абсолютный путь к файлу")

// tmpSuffix — суффикс временных файлов незавершённой записи.
const tmpSuffix = ".tmp"

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// root — абсолютный путь корневой директории (MS_UPLOAD_DIR)
	root string
	// newID — источник уникальных имён (uuid v4)
	newID func() string
}

// BlobInfo — файл, найденный при сканировании раскладки.
type BlobInfo struct {
	Path    string
	Kind    model.Kind
	Size    int64
	ModTime time.Time
}

// New создаёт FileStore с корнем root. Директории не создаются —
// для этого при старте вызывается EnsureLayout.
func New(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("некорректный путь хранилища %s: %w", root, err)
	}

	return &FileStore{
		root:  filepath.Clean(abs),
		newID: uuid.NewString,
	}, nil
}

// Root возвращает абсолютный путь корневой директории.
func (fs *FileStore) Root() string {
	return fs.root
}

// EnsureLayout идемпотентно создаёт root, root/images и root/videos.
func (fs *FileStore) EnsureLayout() error {
	for _, dir := range []string{fs.root, fs.dir(ImagesDir), fs.dir(VideosDir)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}
	return nil
}

// Write записывает данные из reader в path и возвращает количество
// записанных байт. Существующий файл перезаписывается.
//
// Паттерн: temp файл в той же директории → запись → fsync → atomic rename.
// При ошибке temp файл удаляется. Директория должна существовать.
func (fs *FileStore) Write(path string, reader io.Reader) (int64, error) {
	if err := fs.checkPath(path); err != nil {
		return 0, err
	}

	dir, base := filepath.Split(path)
	f, err := os.CreateTemp(dir, "."+base+".*"+tmpSuffix)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Chmod(0o640); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка установки прав: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return size, nil
}

// OpenForRead открывает файл для чтения.
// Возвращает ErrNotFound, если файла нет, он недоступен или не является
// обычным файлом. Вызывающий код обязан закрыть файл.
//
// path берётся из записи индекса и может лежать под прежним корнем:
// принадлежность текущему корню не проверяется.
func (fs *FileStore) OpenForRead(path string) (*os.File, error) {
	path, err := storedPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ошибка получения stat файла %s: %w", path, err)
	}
	if !stat.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s не является обычным файлом", ErrNotFound, path)
	}

	return f, nil
}

// Delete удаляет файл с диска.
// Возвращает nil, если файл уже не существует.
// Как и OpenForRead, принимает путь под прежним корнем хранилища.
func (fs *FileStore) Delete(path string) error {
	path, err := storedPath(path)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", path, err)
	}
	return nil
}

// Exists проверяет существование файла на диске.
func (fs *FileStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListBlobs возвращает файлы в поддиректориях images и videos.
// Скрытые и временные файлы незавершённой записи пропускаются.
func (fs *FileStore) ListBlobs() ([]BlobInfo, error) {
	var result []BlobInfo

	for _, kind := range []model.Kind{model.KindImage, model.KindVideo} {
		sub, _ := SubDir(kind)
		dir := fs.dir(sub)

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения директории %s: %w", dir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, tmpSuffix) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				// Файл удалён между ReadDir и Info
				continue
			}

			result = append(result, BlobInfo{
				Path:    filepath.Join(dir, name),
				Kind:    kind,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	return result, nil
}

// dir возвращает абсолютный путь поддиректории.
func (fs *FileStore) dir(sub string) string {
	return filepath.Join(fs.root, sub)
}

// storedPath проверяет путь из записи индекса и возвращает его
// в очищенном виде. Записи хранят абсолютный путь, поэтому
// после смены MS_UPLOAD_DIR старые файлы остаются доступны.
func storedPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q", ErrRelativePath, path)
	}
	return filepath.Clean(path), nil
}

// checkPath проверяет, что path лежит внутри корня хранилища.
// Применяется к новым путям (Write): они всегда выдаются Allocate.
func (fs *FileStore) checkPath(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s (ожидается абсолютный путь)", ErrOutsideRoot, path)
	}
	rel, err := filepath.Rel(fs.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}
