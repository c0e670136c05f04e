// layout.go — выделение имени и пути для нового файла.
// Имя на диске не зависит от имени клиента: {uuid}{ext}.
package filestore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

// Поддиректории раскладки. Являются частью долговременного формата
// хранения и не должны меняться.
const (
	ImagesDir = "images"
	VideosDir = "videos"
)

// Allocation — результат выделения места под новый файл.
type Allocation struct {
	// StoredName — уникальное имя на диске: {uuid}{ext}
	StoredName string
	// StoragePath — абсолютный путь: {root}/{images|videos}/{StoredName}
	StoragePath string
	// OriginalName — имя клиента без сегментов пути
	OriginalName string
}

// SubDir возвращает поддиректорию для категории.
func SubDir(kind model.Kind) (string, error) {
	switch kind {
	case model.KindImage:
		return ImagesDir, nil
	case model.KindVideo:
		return VideosDir, nil
	default:
		return "", fmt.Errorf("неизвестный тип медиафайла %q", kind)
	}
}

// Allocate выделяет уникальное имя и путь для файла.
// originalName очищается и сохраняется только как метаданные,
// в построении пути участвует лишь его расширение.
// Операция не обращается к диску.
func (fs *FileStore) Allocate(originalName string, kind model.Kind) (Allocation, error) {
	sub, err := SubDir(kind)
	if err != nil {
		return Allocation{}, err
	}

	name := SanitizeFilename(originalName)
	storedName := fs.newID() + Extension(name)

	return Allocation{
		StoredName:   storedName,
		StoragePath:  filepath.Join(fs.root, sub, storedName),
		OriginalName: name,
	}, nil
}

// SanitizeFilename убирает из имени файла все сегменты пути,
// включая "..", и управляющие символы. Возвращает базовое имя.
// Пример: "../../etc/passwd" → "passwd".
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.ReplaceAll(name, `\`, "/")

	segments := strings.Split(name, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		s := strings.TrimSpace(segments[i])
		if s == "" || s == "." || s == ".." {
			continue
		}
		return s
	}
	return ""
}

// Extension возвращает подстроку от последней точки до конца имени
// (включая точку) или пустую строку, если точки нет.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[i:]
}
