package export

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetNameLength = 31
	minColumnWidth     = 10
	maxColumnWidth     = 60
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes a title row, a styled header row and one row per record.
func (e *XLSXExporter) Render(data Dataset, sheet, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	sheet = sheetName(sheet)

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("drop default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#3B82F6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 13}})
	if err != nil {
		return nil, fmt.Errorf("title style: %w", err)
	}

	row := 1
	if title != "" {
		if err := f.SetCellValue(sheet, cell(1, row), title); err != nil {
			return nil, err
		}
		if len(data.Headers) > 1 {
			if err := f.MergeCell(sheet, cell(1, row), cell(len(data.Headers), row)); err != nil {
				return nil, fmt.Errorf("merge title: %w", err)
			}
		}
		if err := f.SetCellStyle(sheet, cell(1, row), cell(1, row), titleStyle); err != nil {
			return nil, err
		}
		row += 2
	}

	widths := make([]int, len(data.Headers))
	for i, header := range data.Headers {
		if err := f.SetCellValue(sheet, cell(i+1, row), header); err != nil {
			return nil, err
		}
		widths[i] = utf8.RuneCountInString(header)
	}
	if err := f.SetCellStyle(sheet, cell(1, row), cell(len(data.Headers), row), headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: row, TopLeftCell: cell(1, row+1), ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	for _, record := range data.Rows {
		row++
		for i, header := range data.Headers {
			value := record[header]
			if err := f.SetCellValue(sheet, cell(i+1, row), value); err != nil {
				return nil, err
			}
			if n := utf8.RuneCountInString(value); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, float64(clamp(w+2, minColumnWidth, maxColumnWidth))); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func sheetName(raw string) string {
	if raw == "" {
		return "Sheet1"
	}
	runes := []rune(raw)
	if len(runes) > maxSheetNameLength {
		runes = runes[:maxSheetNameLength]
	}
	return string(runes)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
