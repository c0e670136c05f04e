package filestore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

// newTestStore создаёт FileStore во временной директории с готовой раскладкой.
func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	if err := fs.EnsureLayout(); err != nil {
		t.Fatalf("ошибка создания раскладки: %v", err)
	}
	return fs
}

// TestEnsureLayout_Idempotent проверяет создание поддиректорий и повторный вызов.
func TestEnsureLayout_Idempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	fs, err := New(root)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := fs.EnsureLayout(); err != nil {
			t.Fatalf("вызов %d: ошибка EnsureLayout: %v", i+1, err)
		}
	}

	for _, sub := range []string{ImagesDir, VideosDir} {
		info, err := os.Stat(filepath.Join(root, sub))
		if err != nil {
			t.Fatalf("директория %s не создана: %v", sub, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s не является директорией", sub)
		}
	}
}

// TestEnsureLayout_RootIsFile проверяет ошибку, если корень занят файлом.
func TestEnsureLayout_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	if err := os.WriteFile(root, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	fs, err := New(root)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	if err := fs.EnsureLayout(); err == nil {
		t.Fatal("ожидалась ошибка: корень является файлом")
	}
}

// TestWriteAndRead проверяет запись и чтение байт без изменений.
func TestWriteAndRead(t *testing.T) {
	fs := newTestStore(t)
	alloc, err := fs.Allocate("photo.jpg", model.KindImage)
	if err != nil {
		t.Fatalf("ошибка Allocate: %v", err)
	}

	content := []byte("Тестовые данные изображения")
	size, err := fs.Write(alloc.StoragePath, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), size)
	}

	f, err := fs.OpenForRead(alloc.StoragePath)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("содержимое файла не совпадает")
	}
}

// TestWrite_Empty проверяет запись пустого потока.
func TestWrite_Empty(t *testing.T) {
	fs := newTestStore(t)
	path := filepath.Join(fs.Root(), ImagesDir, "empty.bin")

	size, err := fs.Write(path, bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	if size != 0 {
		t.Errorf("размер: ожидалось 0, получено %d", size)
	}
	if !fs.Exists(path) {
		t.Error("пустой файл должен существовать")
	}
}

// TestWrite_Overwrite проверяет перезапись существующего файла.
func TestWrite_Overwrite(t *testing.T) {
	fs := newTestStore(t)
	path := filepath.Join(fs.Root(), VideosDir, "clip.mp4")

	if _, err := fs.Write(path, strings.NewReader("старое содержимое")); err != nil {
		t.Fatalf("ошибка первой записи: %v", err)
	}
	if _, err := fs.Write(path, strings.NewReader("new")); err != nil {
		t.Fatalf("ошибка второй записи: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("содержимое: ожидалось new, получено %q", data)
	}
}

// TestWrite_NoTmpFile проверяет, что temp файл не остаётся после записи.
func TestWrite_NoTmpFile(t *testing.T) {
	fs := newTestStore(t)
	path := filepath.Join(fs.Root(), ImagesDir, "a.png")

	if _, err := fs.Write(path, strings.NewReader("data")); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(fs.Root(), ImagesDir))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), tmpSuffix) {
			t.Errorf("найден temp файл: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("ожидался 1 файл, найдено %d", len(entries))
	}
}

// TestWrite_ReaderError проверяет очистку temp файла при ошибке чтения потока.
func TestWrite_ReaderError(t *testing.T) {
	fs := newTestStore(t)
	path := filepath.Join(fs.Root(), ImagesDir, "broken.png")

	readErr := errors.New("обрыв соединения")
	_, err := fs.Write(path, io.MultiReader(strings.NewReader("part"), iotest.ErrReader(readErr)))
	if err == nil {
		t.Fatal("ожидалась ошибка записи")
	}
	if !errors.Is(err, readErr) {
		t.Errorf("ошибка должна оборачивать причину: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(fs.Root(), ImagesDir))
	if len(entries) != 0 {
		t.Errorf("после ошибки директория должна быть пустой, найдено %d файлов", len(entries))
	}
}

// TestWrite_MissingDirectory проверяет ошибку при отсутствии директории.
func TestWrite_MissingDirectory(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// EnsureLayout не вызывался
	path := filepath.Join(fs.Root(), ImagesDir, "a.png")

	if _, err := fs.Write(path, strings.NewReader("data")); err == nil {
		t.Fatal("ожидалась ошибка: директория отсутствует")
	}
}

// TestWrite_OutsideRoot проверяет отказ записи за пределы корня.
func TestWrite_OutsideRoot(t *testing.T) {
	fs := newTestStore(t)
	outside := filepath.Join(filepath.Dir(fs.Root()), "escape.txt")

	_, err := fs.Write(outside, strings.NewReader("data"))
	if !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("ожидалась ErrOutsideRoot, получено %v", err)
	}
	if _, statErr := os.Stat(outside); statErr == nil {
		t.Error("файл вне корня не должен быть создан")
	}
}

// TestOpenForRead_NotFound проверяет ErrNotFound для отсутствующего файла.
func TestOpenForRead_NotFound(t *testing.T) {
	fs := newTestStore(t)

	_, err := fs.OpenForRead(filepath.Join(fs.Root(), ImagesDir, "missing.png"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestOpenForRead_Directory проверяет ErrNotFound для директории.
func TestOpenForRead_Directory(t *testing.T) {
	fs := newTestStore(t)

	_, err := fs.OpenForRead(filepath.Join(fs.Root(), ImagesDir))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestDelete проверяет удаление и идемпотентность.
func TestDelete(t *testing.T) {
	fs := newTestStore(t)
	path := filepath.Join(fs.Root(), VideosDir, "clip.mp4")
	if _, err := fs.Write(path, strings.NewReader("video")); err != nil {
		t.Fatal(err)
	}

	if err := fs.Delete(path); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if fs.Exists(path) {
		t.Error("файл должен быть удалён")
	}

	// Повторное удаление — не ошибка
	if err := fs.Delete(path); err != nil {
		t.Errorf("повторное удаление не должно возвращать ошибку: %v", err)
	}
}

// TestStoredPath_PreviousRoot проверяет чтение и удаление файла,
// сохранённого под прежним корнем хранилища.
func TestStoredPath_PreviousRoot(t *testing.T) {
	previous := newTestStore(t)
	path := filepath.Join(previous.Root(), ImagesDir, "old.png")
	if _, err := previous.Write(path, strings.NewReader("old-bytes")); err != nil {
		t.Fatal(err)
	}

	fs := newTestStore(t)

	rc, err := fs.OpenForRead(path)
	if err != nil {
		t.Fatalf("файл под прежним корнем должен читаться: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old-bytes" {
		t.Errorf("содержимое: ожидалось %q, получено %q", "old-bytes", data)
	}

	if err := fs.Delete(path); err != nil {
		t.Fatalf("файл под прежним корнем должен удаляться: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("файл должен быть удалён")
	}
}

// TestStoredPath_Relative проверяет отказ для относительного пути.
func TestStoredPath_Relative(t *testing.T) {
	fs := newTestStore(t)
	rel := filepath.Join(ImagesDir, "pic.png")

	if _, err := fs.OpenForRead(rel); !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenForRead: ожидалась ErrNotFound, получено %v", err)
	}
	if err := fs.Delete(rel); !errors.Is(err, ErrRelativePath) {
		t.Errorf("Delete: ожидалась ErrRelativePath, получено %v", err)
	}
}

// TestListBlobs проверяет сканирование раскладки.
func TestListBlobs(t *testing.T) {
	fs := newTestStore(t)

	files := map[string]string{
		filepath.Join(fs.Root(), ImagesDir, "a.png"):          "img",
		filepath.Join(fs.Root(), VideosDir, "b.mp4"):          "video",
		filepath.Join(fs.Root(), ImagesDir, ".hidden"):        "x",
		filepath.Join(fs.Root(), ImagesDir, ".a.png.123.tmp"): "partial",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	blobs, err := fs.ListBlobs()
	if err != nil {
		t.Fatalf("ошибка ListBlobs: %v", err)
	}
	if len(blobs) != 2 {
		t.Fatalf("ожидалось 2 файла, получено %d: %+v", len(blobs), blobs)
	}

	byName := make(map[string]BlobInfo)
	for _, b := range blobs {
		byName[filepath.Base(b.Path)] = b
	}
	if b, ok := byName["a.png"]; !ok || b.Kind != model.KindImage || b.Size != 3 {
		t.Errorf("a.png: %+v", b)
	}
	if b, ok := byName["b.mp4"]; !ok || b.Kind != model.KindVideo || b.Size != 5 {
		t.Errorf("b.mp4: %+v", b)
	}
}
