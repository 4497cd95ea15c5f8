package services

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser pulls plain text out of a CV so a text-only model can score it.
type PDFParser interface {
	ExtractText(filePath string) (string, error)
}

type pdfParser struct{}

func NewPDFParser() PDFParser {
	return &pdfParser{}
}

func (p *pdfParser) ExtractText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped, the rest of the CV still scores
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := CleanText(b.String())
	if text == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}
	return text, nil
}

// CleanText trims every line and drops the blank ones.
func CleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
