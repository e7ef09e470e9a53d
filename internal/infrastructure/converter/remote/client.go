package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/resilience"
)

const (
	DefaultEndpoint = "https://jpg-2-excel.onrender.com/api/convert"

	fileField        = "file"
	detectTableField = "detectTable"
	operationName    = "converter.convert"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(endpoint string) *Client {
	return NewWithOptions(endpoint, Options{})
}

func NewWithOptions(endpoint string, options Options) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		executor:   options.ResilienceExecutor,
	}
}

// Convert uploads the artifact bytes unchanged and returns the raw service payload.
// The request is sent once; failures are never retried here.
func (c *Client) Convert(ctx context.Context, artifact *domain.ImageArtifact, mode domain.ProcessingMode) (domain.RawConversionResponse, error) {
	if artifact == nil {
		return domain.RawConversionResponse{}, domain.WrapError(domain.ErrInvalidInput, "convert image", errors.New("image artifact is nil"))
	}

	body, contentType, err := buildMultipart(artifact, mode)
	if err != nil {
		return domain.RawConversionResponse{}, domain.WrapError(domain.ErrInvalidInput, "convert image", err)
	}

	var out domain.RawConversionResponse
	call := func(callCtx context.Context) error {
		resp, err := c.post(callCtx, body, contentType)
		if err != nil {
			return err
		}
		out = resp
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, operationName, call, countsAsBreakerFailure)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.RawConversionResponse{}, wrapTransportIfNeeded(err)
	}
	return out, nil
}

// BreakerState reports the converter circuit breaker state, or "disabled"
// when the client runs without a resilience executor.
func (c *Client) BreakerState() string {
	if c.executor == nil {
		return "disabled"
	}
	return c.executor.State(operationName)
}

func buildMultipart(artifact *domain.ImageArtifact, mode domain.ProcessingMode) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := artifact.DisplayName
	if filename == "" {
		filename = "image"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, escapeQuotes(filename)))
	header.Set("Content-Type", artifact.MediaType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(artifact.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := writer.WriteField(detectTableField, strconv.FormatBool(mode.DetectTable())); err != nil {
		return nil, "", fmt.Errorf("write %s field: %w", detectTableField, err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
