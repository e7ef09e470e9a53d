// Package xlsx writes rendered tables as xlsx workbooks.
package xlsx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet = "Sheet1"
	// Excel keeps 15 significant digits; longer numerals stay text.
	maxNumericDigits = 15
)

type Options struct {
	// InferNumbers writes cells holding an exact integer or decimal literal as numbers.
	InferNumbers bool
}

type Encoder struct {
	opts Options
}

func NewEncoder(opts Options) *Encoder {
	return &Encoder{opts: opts}
}

// Encode builds a single-sheet workbook with one spreadsheet row per grid row.
func (e *Encoder) Encode(sheet string, grid [][]string) ([]byte, error) {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	for rowIdx, row := range grid {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
		if err != nil {
			return nil, fmt.Errorf("cell name for row %d: %w", rowIdx+1, err)
		}
		values := make([]interface{}, 0, len(row))
		for _, text := range row {
			values = append(values, e.cellValue(text))
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", rowIdx+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Encoder) cellValue(text string) interface{} {
	if !e.opts.InferNumbers {
		return text
	}
	return parseValue(text)
}

// parseValue returns int64 or float64 only when formatting the number back
// reproduces text exactly, so the visible cell content never changes.
func parseValue(text string) interface{} {
	digits := strings.TrimLeft(text, "-")
	digits = strings.Replace(digits, ".", "", 1)
	if digits == "" || len(digits) > maxNumericDigits {
		return text
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil && strconv.FormatInt(i, 10) == text {
		return i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == text {
		return f
	}
	return text
}

// ReadGrid returns the text rows of sheet from workbook bytes.
func ReadGrid(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// SheetNames lists the sheets of a workbook in order.
func SheetNames(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
