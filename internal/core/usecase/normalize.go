package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

// ResponseNormalizer enforces the mode-dependent payload shape and produces a CanonicalTable.
type ResponseNormalizer struct {
	logger *slog.Logger
}

func NewResponseNormalizer(logger *slog.Logger) *ResponseNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseNormalizer{logger: logger}
}

func (n *ResponseNormalizer) Normalize(resp domain.RawConversionResponse, mode domain.ProcessingMode) (domain.CanonicalTable, error) {
	if !resp.Success {
		return domain.CanonicalTable{}, domain.WrapError(domain.ErrService, "normalize response", domain.NewServiceError(0, resp.ErrorMessage))
	}

	content, err := n.decode(resp.Payload, mode)
	if err != nil {
		return domain.CanonicalTable{}, err
	}
	return tableFromContent(content), nil
}

func (n *ResponseNormalizer) decode(payload string, mode domain.ProcessingMode) (domain.ExtractedContent, error) {
	var items []json.RawMessage
	parsed, err := decodeJSON(payload)
	if err != nil {
		n.logger.Warn("payload_unparseable", "mode", mode.String(), "payload", payload, "error", err)
		return nil, formatFailure("unparseable payload")
	}
	if trimmed := bytes.TrimSpace(parsed); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, formatFailure(shapeReason(mode))
	}
	if err := json.Unmarshal(parsed, &items); err != nil {
		return nil, formatFailure(shapeReason(mode))
	}

	switch mode {
	case domain.ModeTableDetection:
		rows := make([][]string, 0, len(items))
		for idx, item := range items {
			row, ok := decodeRow(item)
			if !ok {
				n.logger.Warn("payload_shape_mismatch", "mode", mode.String(), "index", idx)
				return nil, formatFailure(shapeReason(mode))
			}
			rows = append(rows, row)
		}
		return domain.TableContent{Rows: rows}, nil
	case domain.ModePlainText:
		lines := make([]string, 0, len(items))
		for idx, item := range items {
			var line string
			if !isJSONString(item) || json.Unmarshal(item, &line) != nil {
				n.logger.Warn("payload_shape_mismatch", "mode", mode.String(), "index", idx)
				return nil, formatFailure(shapeReason(mode))
			}
			lines = append(lines, line)
		}
		return domain.TextContent{Lines: lines}, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "normalize response", fmt.Errorf("unknown processing mode %d", mode))
	}
}

func tableFromContent(content domain.ExtractedContent) domain.CanonicalTable {
	switch c := content.(type) {
	case domain.TableContent:
		return domain.CanonicalTable{Mode: domain.ModeTableDetection, Rows: c.Rows}
	case domain.TextContent:
		rows := make([][]string, 0, len(c.Lines))
		for _, line := range c.Lines {
			rows = append(rows, []string{line})
		}
		return domain.CanonicalTable{Mode: domain.ModePlainText, Rows: rows}
	default:
		panic(fmt.Sprintf("usecase: unhandled content variant %T", content))
	}
}

func decodeJSON(payload string) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after json value")
	}
	return raw, nil
}

func decodeRow(item json.RawMessage) ([]string, bool) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var cells []json.RawMessage
	if err := json.Unmarshal(trimmed, &cells); err != nil {
		return nil, false
	}
	row := make([]string, 0, len(cells))
	for _, cell := range cells {
		row = append(row, cellText(cell))
	}
	return row, true
}

// cellText coerces a JSON scalar to its display text.
func cellText(cell json.RawMessage) string {
	trimmed := bytes.TrimSpace(cell)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case trimmed[0] == '{' || trimmed[0] == '[':
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err == nil {
			return compact.String()
		}
	}
	return string(trimmed)
}

func isJSONString(item json.RawMessage) bool {
	trimmed := bytes.TrimSpace(item)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

func shapeReason(mode domain.ProcessingMode) string {
	if mode == domain.ModePlainText {
		return "expected array of strings"
	}
	return "expected array of arrays"
}

func formatFailure(reason string) error {
	return domain.WrapError(domain.ErrFormat, "normalize response", &domain.FormatError{Reason: reason})
}
