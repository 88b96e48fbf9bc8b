package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
)

var ErrInvalidFormat = errors.New("format must be 'pdf' or 'csv'")

// ParseFormat accepts "pdf" or "csv", case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", ErrInvalidFormat
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Entry: одна реплика в выгрузке
type Entry struct {
	Time   time.Time
	Author string
	Text   string
}

type Transcript struct {
	Title   string
	Entries []Entry
}

// Render encodes the transcript in the requested format.
func Render(t Transcript, f Format) ([]byte, error) {
	switch f {
	case FormatPDF:
		return renderPDF(t)
	case FormatCSV:
		return renderCSV(t)
	default:
		return nil, ErrInvalidFormat
	}
}

func renderCSV(t Transcript) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"time", "author", "text"}); err != nil {
		return nil, err
	}
	for _, e := range t.Entries {
		if err := w.Write([]string{e.Time.UTC().Format(time.RFC3339), e.Author, e.Text}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// renderPDF uses the core Helvetica font; the cp1252 translator covers French accents.
func renderPDF(t Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(t.Title))
	pdf.Ln(12)

	if len(t.Entries) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 6, tr("Aucun échange."))
		pdf.Ln(6)
	}

	for _, e := range t.Entries {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s  %s", e.Time.Format("2006-01-02 15:04"), e.Author)))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(e.Text), "", "L", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
