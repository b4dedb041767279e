package export

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 190.0
	minColWidth = 15.0
)

// PDFExporter renders datasets as a single table on A4 pages.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType returns the MIME type of the rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension returns the file extension of the rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render draws the title, a header row and one row per record. Column widths
// follow the longest cell of each column.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := columnWidths(data)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, record := range data.Records {
		if pdf.GetY()+7 > pageHeight-bottom-10 {
			pdf.AddPage()
			header()
		}
		for i, cell := range record {
			pdf.CellFormat(widths[i], 7, tr(cell), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(data Dataset) []float64 {
	lengths := make([]int, len(data.Headers))
	for i, h := range data.Headers {
		lengths[i] = utf8.RuneCountInString(h)
	}
	for _, record := range data.Records {
		for i, cell := range record {
			if n := utf8.RuneCountInString(cell); n > lengths[i] {
				lengths[i] = n
			}
		}
	}
	total := 0
	for _, n := range lengths {
		total += n
	}
	widths := make([]float64, len(lengths))
	if total == 0 {
		for i := range widths {
			widths[i] = pageWidth / float64(len(widths))
		}
		return widths
	}

	// Columns get a share proportional to their longest cell, but never less
	// than minColWidth; the remaining space is shared among the rest.
	remaining := pageWidth
	flexible := 0
	for i, n := range lengths {
		w := pageWidth * float64(n) / float64(total)
		if w < minColWidth {
			widths[i] = minColWidth
			remaining -= minColWidth
			continue
		}
		flexible += n
	}
	for i, n := range lengths {
		if widths[i] == 0 {
			widths[i] = remaining * float64(n) / float64(flexible)
		}
	}
	return widths
}
