package model

import (
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"image", KindImage, false},
		{"IMAGE", KindImage, false},
		{" Video ", KindVideo, false},
		{"VIDEO", KindVideo, false},
		{"audio", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): ожидалась ошибка", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): неожиданная ошибка %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

func TestNewerThan(t *testing.T) {
	now := time.Now()
	older := &MediaRecord{ID: 5, UploadedAt: now.Add(-time.Second)}
	newer := &MediaRecord{ID: 1, UploadedAt: now}

	if !newer.NewerThan(older) {
		t.Error("запись с более поздним UploadedAt должна идти первой")
	}
	if older.NewerThan(newer) {
		t.Error("запись с более ранним UploadedAt не должна идти первой")
	}

	// Одинаковое время — решает порядок вставки
	a := &MediaRecord{ID: 2, UploadedAt: now}
	b := &MediaRecord{ID: 3, UploadedAt: now}
	if !b.NewerThan(a) {
		t.Error("при равном UploadedAt позже вставленная запись должна идти первой")
	}
}

func TestClone(t *testing.T) {
	orig := &MediaRecord{ID: 1, OriginalName: "cat.png"}
	c := orig.Clone()
	c.OriginalName = "dog.png"

	if orig.OriginalName != "cat.png" {
		t.Error("Clone должен возвращать независимую копию")
	}

	var nilRec *MediaRecord
	if nilRec.Clone() != nil {
		t.Error("Clone(nil) должен возвращать nil")
	}
}
