package localfs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "table.xlsx", bytes.NewReader([]byte("workbook"))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "table.xlsx")); err != nil {
		t.Fatalf("expected saved file: %v", err)
	}

	reader, err := storage.Open(context.Background(), "table.xlsx")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reader.Close()
	raw, _ := io.ReadAll(reader)
	if string(raw) != "workbook" {
		t.Fatalf("expected saved body, got %q", raw)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestSaveRejectsPathTraversal(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = storage.Save(context.Background(), "../escape.xlsx", bytes.NewReader(nil))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
