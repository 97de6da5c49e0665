package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// RGB is a fill colour.
type RGB struct {
	R, G, B int
}

// Header fills used by the list exports.
var (
	FillBlue    = RGB{59, 130, 246}
	FillNavy    = RGB{30, 64, 175}
	FillSteel   = RGB{41, 128, 185}
	FillDefault = RGB{41, 128, 185}
)

// PDFOptions tunes the list layout.
type PDFOptions struct {
	Title      string
	FontSize   float64
	HeaderFill RGB
	Landscape  bool
}

// Section is one titled key/value block of a record document.
type Section struct {
	Heading string
	Rows    [][2]string
	// Emphasis marks rows rendered as a highlighted band (e.g. "STAGE 2").
	Emphasis map[int]bool
	// EmptyText is printed instead of the table when Rows is empty.
	EmptyText string
}

// Document is a single-record PDF such as a stagiaire dossier.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// PDFExporter renders datasets into tabular PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// gofpdf core fonts are cp1252; glyphs outside it are spelled out.
var pdfGlyphs = strings.NewReplacer("→", "->", "•", "-", "«", "\"", "»", "\"")

func newDocument(landscape bool) (*gofpdf.Fpdf, func(string) string) {
	orientation := "P"
	if landscape {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(14, 15, 14)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return pdf, func(s string) string { return tr(pdfGlyphs.Replace(s)) }
}

// Render creates a PDF list with a title line and a grid table.
func (e *PDFExporter) Render(data Dataset, opts PDFOptions) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 10
	}
	if opts.HeaderFill == (RGB{}) {
		opts.HeaderFill = FillDefault
	}

	pdf, tr := newDocument(opts.Landscape)
	pdf.AddPage()

	if opts.Title != "" {
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 6, tr(opts.Title), "", "L", false)
		pdf.Ln(3)
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(data.Headers))
	lineHeight := opts.FontSize * 0.5

	header := make([]string, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = tr(h)
	}
	drawHeader := func() {
		pdf.SetFont("Arial", "B", opts.FontSize)
		pdf.SetFillColor(opts.HeaderFill.R, opts.HeaderFill.G, opts.HeaderFill.B)
		pdf.SetTextColor(255, 255, 255)
		drawRow(pdf, header, colWidth, lineHeight, true)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", opts.FontSize)
	}
	drawHeader()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		cells := make([]string, len(data.Headers))
		for i, h := range data.Headers {
			cells[i] = tr(row[h])
		}
		if pdf.GetY()+rowHeight(pdf, cells, colWidth, lineHeight) > pageHeight-bottom {
			pdf.AddPage()
			drawHeader()
		}
		drawRow(pdf, cells, colWidth, lineHeight, false)
	}

	return output(pdf)
}

// RenderDocument lays out a record as consecutive two-column sections.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf document requires a title")
	}
	pdf, tr := newDocument(false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "L", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(FillNavy.R, FillNavy.G, FillNavy.B)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.SetTextColor(55, 65, 81)
		pdf.CellFormat(0, 7, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	widths := []float64{usable / 3, usable * 2 / 3}

	for _, section := range doc.Sections {
		pdf.SetFont("Arial", "B", 14)
		pdf.SetTextColor(FillNavy.R, FillNavy.G, FillNavy.B)
		pdf.CellFormat(0, 9, tr(section.Heading), "", 1, "L", false, 0, "")

		if len(section.Rows) == 0 {
			pdf.SetFont("Arial", "", 11)
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(0, 7, tr(section.EmptyText), "", 1, "L", false, 0, "")
			pdf.Ln(4)
			continue
		}

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(FillNavy.R, FillNavy.G, FillNavy.B)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(widths[0], 7, tr("Champ"), "1", 0, "L", true, 0, "")
		pdf.CellFormat(widths[1], 7, tr("Valeur"), "1", 1, "L", true, 0, "")

		for i, kv := range section.Rows {
			switch {
			case section.Emphasis[i]:
				pdf.SetFont("Arial", "B", 9)
				pdf.SetFillColor(FillNavy.R, FillNavy.G, FillNavy.B)
				pdf.SetTextColor(255, 255, 255)
			case kv[0] == "" && kv[1] == "":
				pdf.SetFont("Arial", "", 9)
				pdf.SetFillColor(249, 250, 251)
				pdf.SetTextColor(0, 0, 0)
			default:
				pdf.SetFont("Arial", "", 9)
				pdf.SetFillColor(243, 244, 246)
				pdf.SetTextColor(0, 0, 0)
			}
			pdf.CellFormat(widths[0], 7, tr(kv[0]), "1", 0, "L", true, 0, "")
			if !section.Emphasis[i] {
				pdf.SetFillColor(255, 255, 255)
			}
			pdf.CellFormat(widths[1], 7, tr(kv[1]), "1", 1, "L", true, 0, "")
		}
		pdf.Ln(8)
	}

	return output(pdf)
}

func rowHeight(pdf *gofpdf.Fpdf, cells []string, colWidth, lineHeight float64) float64 {
	lines := 1
	for _, cell := range cells {
		if n := len(pdf.SplitLines([]byte(cell), colWidth-2)); n > lines {
			lines = n
		}
	}
	return float64(lines)*lineHeight + 2
}

func drawRow(pdf *gofpdf.Fpdf, cells []string, colWidth, lineHeight float64, fill bool) {
	height := rowHeight(pdf, cells, colWidth, lineHeight)
	x, y := pdf.GetXY()
	for i, cell := range cells {
		cx := x + float64(i)*colWidth
		style := "D"
		if fill {
			style = "FD"
		}
		pdf.Rect(cx, y, colWidth, height, style)
		pdf.SetXY(cx+1, y+1)
		pdf.MultiCell(colWidth-2, lineHeight, cell, "", "L", false)
	}
	pdf.SetXY(x, y+height)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
