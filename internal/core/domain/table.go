package domain

import "fmt"

const PlainTextHeader = "Extracted Text"

type CanonicalTable struct {
	Mode ProcessingMode
	Rows [][]string
}

func (t CanonicalTable) Empty() bool {
	return len(t.Rows) == 0
}

// RenderedTable is the editable copy shown to the user. Exports read it as-is.
type RenderedTable struct {
	Header []string   `json:"header"`
	Body   [][]string `json:"body"`
}

// SetCell edits a body cell in place. Row and col are 0-based body coordinates.
func (t *RenderedTable) SetCell(row, col int, value string) error {
	if t == nil {
		return WrapError(ErrInvalidInput, "set cell", fmt.Errorf("no rendered table"))
	}
	if row < 0 || row >= len(t.Body) {
		return WrapError(ErrInvalidInput, "set cell", fmt.Errorf("row %d out of range [0,%d)", row, len(t.Body)))
	}
	if col < 0 || col >= len(t.Body[row]) {
		return WrapError(ErrInvalidInput, "set cell", fmt.Errorf("column %d out of range [0,%d) in row %d", col, len(t.Body[row]), row))
	}
	t.Body[row][col] = value
	return nil
}

func (t *RenderedTable) Clone() *RenderedTable {
	if t == nil {
		return nil
	}
	out := &RenderedTable{
		Header: append([]string(nil), t.Header...),
		Body:   make([][]string, len(t.Body)),
	}
	for i, row := range t.Body {
		out.Body[i] = append([]string(nil), row...)
	}
	return out
}

// Grid returns header followed by body rows, the layout written to a sheet.
func (t *RenderedTable) Grid() [][]string {
	if t == nil {
		return nil
	}
	out := make([][]string, 0, len(t.Body)+1)
	out = append(out, t.Header)
	out = append(out, t.Body...)
	return out
}

type Presentation struct {
	NoData bool           `json:"no_data"`
	Hint   string         `json:"hint,omitempty"`
	Table  *RenderedTable `json:"table,omitempty"`
}
