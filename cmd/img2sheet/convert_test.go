package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/spreadsheet/xlsx"
)

func converterServer(t *testing.T, payload string, detectTable chan<- string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if detectTable != nil {
			select {
			case detectTable <- r.FormValue("detectTable"):
			default:
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"data": payload})
	}))
}

func setCLIEnv(t *testing.T, converterURL, exportDir string) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CONVERTER_URL", converterURL)
	t.Setenv("EXPORT_STORAGE", "local")
	t.Setenv("EXPORT_DIR", exportDir)
	t.Setenv("LOG_LEVEL", "error")
}

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestConvertCommandSavesEditedWorkbook(t *testing.T) {
	detectTable := make(chan string, 1)
	server := converterServer(t, `[["Item","Qty"],["Tea","2"]]`, detectTable)
	defer server.Close()

	exportDir := t.TempDir()
	setCLIEnv(t, server.URL, exportDir)
	imagePath := writeJPEG(t, t.TempDir(), "receipt.jpg")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"convert", imagePath, "--set", "0:1=99"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("convert command: %v (stderr: %s)", err, stderr.String())
	}

	if got := <-detectTable; got != "true" {
		t.Fatalf("expected detectTable=true, got %q", got)
	}
	if !strings.Contains(stdout.String(), "Tea") || !strings.Contains(stdout.String(), "99") {
		t.Fatalf("expected edited table on stdout, got %q", stdout.String())
	}

	data, err := os.ReadFile(filepath.Join(exportDir, "receipt.xlsx"))
	if err != nil {
		t.Fatalf("read exported workbook: %v", err)
	}
	grid, err := xlsx.ReadGrid(data, "Sheet1")
	if err != nil {
		t.Fatalf("read grid: %v", err)
	}
	if len(grid) != 2 || grid[1][1] != "99" {
		t.Fatalf("expected edit to reach the workbook, got %v", grid)
	}
}

func TestConvertCommandPlainTextWritesOutDir(t *testing.T) {
	detectTable := make(chan string, 1)
	server := converterServer(t, `["first line","second line"]`, detectTable)
	defer server.Close()

	setCLIEnv(t, server.URL, t.TempDir())
	outDir := t.TempDir()
	imagePath := writeJPEG(t, t.TempDir(), "notes.final.jpg")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"convert", imagePath, "--text", "--out", outDir, "-q"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("convert command: %v", err)
	}
	if got := <-detectTable; got != "false" {
		t.Fatalf("expected detectTable=false, got %q", got)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "notes.xlsx"))
	if err != nil {
		t.Fatalf("expected workbook named after the image up to the first dot: %v", err)
	}
	grid, err := xlsx.ReadGrid(data, "Sheet1")
	if err != nil {
		t.Fatalf("read grid: %v", err)
	}
	if len(grid) != 3 || grid[0][0] != "Extracted Text" || grid[2][0] != "second line" {
		t.Fatalf("unexpected plain text grid: %v", grid)
	}
}

func TestConvertCommandRejectsNonImage(t *testing.T) {
	server := converterServer(t, `[]`, nil)
	defer server.Close()
	setCLIEnv(t, server.URL, t.TempDir())

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"convert", path})
	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Please select a valid image file") {
		t.Fatalf("expected invalid file type message, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrInvalidFileType) {
		t.Fatalf("expected error to unwrap to ErrInvalidFileType, got %v", err)
	}

	var out bytes.Buffer
	reportError(&out, err)
	if got := out.String(); got != "Try Again: Please select a valid image file (JPG, PNG).\n" {
		t.Fatalf("unexpected printed error %q", got)
	}
}

func TestReportErrorPrintsOtherErrorsPlainly(t *testing.T) {
	var out bytes.Buffer
	reportError(&out, errors.New("read image: no such file"))
	if got := out.String(); got != "Error: read image: no such file\n" {
		t.Fatalf("unexpected printed error %q", got)
	}
}

func TestParseCellEdits(t *testing.T) {
	edits, err := parseCellEdits([]string{"0:1=99", " 2 : 0 =a=b"})
	if err != nil {
		t.Fatalf("parse edits: %v", err)
	}
	if len(edits) != 2 || edits[0].row != 0 || edits[0].col != 1 || edits[0].value != "99" {
		t.Fatalf("unexpected first edit: %+v", edits)
	}
	if edits[1].row != 2 || edits[1].col != 0 || edits[1].value != "a=b" {
		t.Fatalf("unexpected second edit: %+v", edits[1])
	}

	for _, bad := range []string{"0:1", "x:1=v", "1=v", "0:y=v"} {
		if _, err := parseCellEdits([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestInspectCommandPrintsWorkbook(t *testing.T) {
	data, err := xlsx.NewEncoder(xlsx.Options{}).Encode("Sheet1", [][]string{{"Name", "Score"}, {"Ada", "10"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"inspect", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(stdout.String(), "Ada") || !strings.Contains(stdout.String(), "Score") {
		t.Fatalf("unexpected inspect output %q", stdout.String())
	}
}

func TestInspectStoredReadsFromExportStorage(t *testing.T) {
	server := converterServer(t, `[["City"],["Oslo"]]`, nil)
	defer server.Close()
	exportDir := t.TempDir()
	setCLIEnv(t, server.URL, exportDir)
	imagePath := writeJPEG(t, t.TempDir(), "cities.jpg")

	convert := newRootCmd()
	convert.SetOut(&bytes.Buffer{})
	convert.SetErr(&bytes.Buffer{})
	convert.SetArgs([]string{"convert", imagePath, "-q"})
	if err := convert.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("convert: %v", err)
	}

	var stdout bytes.Buffer
	inspect := newRootCmd()
	inspect.SetOut(&stdout)
	inspect.SetErr(&bytes.Buffer{})
	inspect.SetArgs([]string{"inspect", "--stored", "cities.xlsx"})
	if err := inspect.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("inspect --stored: %v", err)
	}
	if !strings.Contains(stdout.String(), "Oslo") {
		t.Fatalf("expected stored workbook contents, got %q", stdout.String())
	}
}
