package usecase

import "github.com/kirillkom/image-to-excel/internal/core/domain"

const (
	hintReadyToConvert = "Ready to convert."
	hintNoPreview      = "No preview yet"
	hintNoTableData    = "No table data extracted."
	hintConversionFail = "Please add a clear image or try again."
)

// Present builds the editable rendering of table. The result never aliases
// the canonical rows, so edits stay in the presentation copy.
func Present(table domain.CanonicalTable) domain.Presentation {
	if table.Empty() {
		return domain.Presentation{NoData: true, Hint: hintNoTableData}
	}

	var header []string
	body := table.Rows
	if table.Mode == domain.ModeTableDetection {
		header = table.Rows[0]
		body = table.Rows[1:]
	} else {
		header = []string{domain.PlainTextHeader}
	}

	rendered := &domain.RenderedTable{Header: header, Body: body}
	return domain.Presentation{Table: rendered.Clone()}
}

func placeholder(hint string) domain.Presentation {
	return domain.Presentation{NoData: true, Hint: hint}
}
