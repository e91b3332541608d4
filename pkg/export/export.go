package export

import (
	"fmt"
	"strings"
)

// Format names a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts csv or pdf, case-insensitively. An empty value means csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset is tabular export content. Rows are keyed by header; missing cells render empty.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Exporter renders datasets in every supported format.
type Exporter struct {
	csv *csvRenderer
	pdf *pdfRenderer
}

// New builds an Exporter.
func New() *Exporter {
	return &Exporter{csv: &csvRenderer{}, pdf: &pdfRenderer{}}
}

// Render encodes data in the requested format. title is used by formats that show one.
func (e *Exporter) Render(format Format, data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("%s export requires at least one header", format)
	}
	switch format {
	case FormatCSV:
		return e.csv.render(data)
	case FormatPDF:
		return e.pdf.render(data, title)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
