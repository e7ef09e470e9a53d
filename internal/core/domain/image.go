package domain

import (
	"encoding/base64"
	"io"
)

// ImageCandidate is a file offered by the presentation layer before validation.
type ImageCandidate struct {
	Name      string
	MediaType string
	Body      io.Reader
}

type ImageArtifact struct {
	Data        []byte `json:"-"`
	MediaType   string `json:"media_type"`
	DisplayName string `json:"display_name"`
}

// DataURI renders the artifact bytes as a data URI usable as an image preview.
func (a *ImageArtifact) DataURI() string {
	if a == nil {
		return ""
	}
	return "data:" + a.MediaType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

type ProcessingMode int

const (
	ModeTableDetection ProcessingMode = iota
	ModePlainText
)

func (m ProcessingMode) String() string {
	switch m {
	case ModeTableDetection:
		return "table"
	case ModePlainText:
		return "text"
	default:
		return "unknown"
	}
}

// DetectTable is the wire flag sent with every conversion request.
func (m ProcessingMode) DetectTable() bool {
	return m == ModeTableDetection
}

func ParseProcessingMode(raw string) (ProcessingMode, bool) {
	switch raw {
	case "table", "detect-table", "true":
		return ModeTableDetection, true
	case "text", "plain-text", "false":
		return ModePlainText, true
	default:
		return ModeTableDetection, false
	}
}
