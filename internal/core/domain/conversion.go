package domain

type RawConversionResponse struct {
	Success      bool
	Payload      string
	ErrorMessage string
}

// ExtractedContent is the decoded payload; one variant per ProcessingMode.
type ExtractedContent interface {
	Mode() ProcessingMode
	sealed()
}

type TableContent struct {
	Rows [][]string
}

func (TableContent) Mode() ProcessingMode { return ModeTableDetection }
func (TableContent) sealed()              {}

type TextContent struct {
	Lines []string
}

func (TextContent) Mode() ProcessingMode { return ModePlainText }
func (TextContent) sealed()              {}

type ExportArtifact struct {
	Data     []byte
	Filename string
}
