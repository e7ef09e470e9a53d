package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/image-to-excel/internal/config"
	"github.com/kirillkom/image-to-excel/internal/core/ports"
	"github.com/kirillkom/image-to-excel/internal/core/usecase"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/converter/remote"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/resilience"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/spreadsheet/xlsx"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/storage/s3"
)

type App struct {
	Config config.Config

	Converter ports.ConversionClient
	Encoder   ports.SpreadsheetEncoder
	Storage   ports.ObjectStorage

	observer ports.WorkflowObserver
	logger   *slog.Logger
	remote   *remote.Client
}

// New wires the conversion stack. observer may be nil.
func New(_ context.Context, cfg config.Config, observer ports.WorkflowObserver, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
	})
	converter := remote.NewWithOptions(cfg.ConverterURL, remote.Options{
		Timeout:            time.Duration(cfg.ConverterTimeoutSeconds) * time.Second,
		ResilienceExecutor: executor,
	})
	encoder := xlsx.NewEncoder(xlsx.Options{InferNumbers: cfg.ExportInferNumbers})

	logger.Info("bootstrap_ready",
		"converter_url", cfg.ConverterURL,
		"export_storage", cfg.ExportStorage,
		"breaker_enabled", cfg.BreakerEnabled,
	)

	return &App{
		Config:    cfg,
		Converter: converter,
		Encoder:   encoder,
		Storage:   storage,
		observer:  observer,
		logger:    logger,
		remote:    converter,
	}, nil
}

// NewWorkflow returns a fresh workflow; every session gets its own.
func (a *App) NewWorkflow() ports.ConversionWorkflow {
	return a.NewConversionWorkflow()
}

func (a *App) NewConversionWorkflow() *usecase.ConversionWorkflow {
	return usecase.NewConversionWorkflow(a.Converter, a.Encoder, a.observer, a.logger)
}

// BreakerState reports the converter circuit breaker state for health checks.
func (a *App) BreakerState() string {
	return a.remote.BreakerState()
}

func newStorage(cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.ExportStorage {
	case "", "local":
		return localfs.New(cfg.ExportDir)
	case "s3":
		return s3.New(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported export storage %q", cfg.ExportStorage)
	}
}
