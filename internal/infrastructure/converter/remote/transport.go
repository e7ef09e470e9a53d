package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

const maxResponseBytes = 16 << 20

type successEnvelope struct {
	Data *string `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func (c *Client) post(ctx context.Context, body []byte, contentType string) (domain.RawConversionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.RawConversionResponse{}, domain.WrapError(domain.ErrInvalidInput, "create convert request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawConversionResponse{}, domain.WrapError(domain.ErrTransport, "convert request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.RawConversionResponse{}, domain.WrapError(domain.ErrTransport, "read convert response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.RawConversionResponse{}, formatServiceError(resp.StatusCode, raw)
	}

	var envelope successEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.RawConversionResponse{}, domain.WrapError(domain.ErrFormat, "decode convert response",
			&domain.FormatError{Reason: "unparseable response envelope"})
	}
	if envelope.Data == nil {
		return domain.RawConversionResponse{}, domain.WrapError(domain.ErrFormat, "decode convert response",
			&domain.FormatError{Reason: "response has no data field"})
	}
	return domain.RawConversionResponse{Success: true, Payload: *envelope.Data}, nil
}

func formatServiceError(statusCode int, raw []byte) error {
	var envelope errorEnvelope
	message := ""
	if err := json.Unmarshal(raw, &envelope); err == nil {
		message = strings.TrimSpace(envelope.Error)
	}
	return domain.WrapError(domain.ErrService, fmt.Sprintf("convert status %d", statusCode), domain.NewServiceError(statusCode, message))
}

func statusCodeOf(err error) (int, bool) {
	var serviceErr *domain.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.StatusCode, true
	}
	return 0, false
}
