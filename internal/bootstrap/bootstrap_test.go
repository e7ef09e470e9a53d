package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/kirillkom/image-to-excel/internal/config"
	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/storage/localfs"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWiresLocalStorageAndIndependentWorkflows(t *testing.T) {
	app, err := New(context.Background(), config.Config{
		ConverterURL:  "http://127.0.0.1:1/api/convert",
		ExportStorage: "local",
		ExportDir:     t.TempDir(),
	}, nil, quietLogger())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if _, ok := app.Storage.(*localfs.Storage); !ok {
		t.Fatalf("expected local storage, got %T", app.Storage)
	}

	first := app.NewWorkflow()
	second := app.NewWorkflow()
	if first == second {
		t.Fatalf("expected a fresh workflow per call")
	}
	if first.Snapshot().State != domain.StateIdle {
		t.Fatalf("expected new workflow to start idle")
	}
	if got := app.BreakerState(); got != "closed" {
		t.Fatalf("expected closed breaker before any call, got %q", got)
	}
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	_, err := New(context.Background(), config.Config{ExportStorage: "ftp"}, nil, quietLogger())
	if err == nil {
		t.Fatalf("expected error for unknown export storage")
	}
}

func TestNewRequiresS3Credentials(t *testing.T) {
	_, err := New(context.Background(), config.Config{
		ExportStorage: "s3",
		S3Endpoint:    "localhost:9000",
		S3Bucket:      "exports",
	}, nil, quietLogger())
	if err == nil {
		t.Fatalf("expected error when s3 credentials are missing")
	}
}
