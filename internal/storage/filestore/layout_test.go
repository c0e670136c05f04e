package filestore

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`..\..\windows\system.ini`, "system.ini"},
		{"dir/sub/clip.mp4", "clip.mp4"},
		{"clip.mp4/..", "clip.mp4"},
		{"./a.png", "a.png"},
		{"bad\x00name\n.png", "badname.png"},
		{"..", ""},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", ".jpg"},
		{"archive.tar.gz", ".gz"},
		{"README", ""},
		{".bashrc", ".bashrc"},
		{"name.", "."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Extension(tt.in); got != tt.want {
			t.Errorf("Extension(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

// TestAllocate проверяет формат имени и пути.
func TestAllocate(t *testing.T) {
	fs := newTestStore(t)

	alloc, err := fs.Allocate("cat.png", model.KindImage)
	if err != nil {
		t.Fatalf("ошибка Allocate: %v", err)
	}

	if !strings.HasSuffix(alloc.StoredName, ".png") {
		t.Errorf("StoredName должен сохранять расширение: %s", alloc.StoredName)
	}
	id := strings.TrimSuffix(alloc.StoredName, ".png")
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("StoredName должен начинаться с UUID: %s", alloc.StoredName)
	}
	if parsed.Version() != 4 {
		t.Errorf("ожидался UUID v4, получена версия %d", parsed.Version())
	}

	want := filepath.Join(fs.Root(), ImagesDir, alloc.StoredName)
	if alloc.StoragePath != want {
		t.Errorf("StoragePath = %s, ожидалось %s", alloc.StoragePath, want)
	}
	if alloc.OriginalName != "cat.png" {
		t.Errorf("OriginalName = %s", alloc.OriginalName)
	}
}

// TestAllocate_Video проверяет поддиректорию видео и имя без расширения.
func TestAllocate_Video(t *testing.T) {
	fs := newTestStore(t)
	fs.newID = func() string { return "fixed-id" }

	alloc, err := fs.Allocate("movie", model.KindVideo)
	if err != nil {
		t.Fatalf("ошибка Allocate: %v", err)
	}
	if alloc.StoredName != "fixed-id" {
		t.Errorf("StoredName = %s, ожидалось fixed-id", alloc.StoredName)
	}
	if alloc.StoragePath != filepath.Join(fs.Root(), VideosDir, "fixed-id") {
		t.Errorf("StoragePath = %s", alloc.StoragePath)
	}
}

// TestAllocate_Traversal проверяет, что путь клиента не влияет на путь хранения.
func TestAllocate_Traversal(t *testing.T) {
	fs := newTestStore(t)

	alloc, err := fs.Allocate("../../etc/passwd", model.KindImage)
	if err != nil {
		t.Fatalf("ошибка Allocate: %v", err)
	}
	if alloc.OriginalName != "passwd" {
		t.Errorf("OriginalName = %q, ожидалось passwd", alloc.OriginalName)
	}
	if filepath.Dir(alloc.StoragePath) != filepath.Join(fs.Root(), ImagesDir) {
		t.Errorf("файл должен лежать в images: %s", alloc.StoragePath)
	}
}

// TestAllocate_Unique проверяет уникальность имён при одинаковом исходном имени.
func TestAllocate_Unique(t *testing.T) {
	fs := newTestStore(t)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		alloc, err := fs.Allocate("same.jpg", model.KindImage)
		if err != nil {
			t.Fatal(err)
		}
		if seen[alloc.StoredName] {
			t.Fatalf("повторное имя: %s", alloc.StoredName)
		}
		seen[alloc.StoredName] = true
	}
}

// TestAllocate_UnknownKind проверяет отказ для неизвестной категории.
func TestAllocate_UnknownKind(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.Allocate("a.mp3", model.Kind("AUDIO")); err == nil {
		t.Fatal("ожидалась ошибка для неизвестной категории")
	}
}
