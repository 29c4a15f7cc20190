package statement

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts the text rows of a PDF statement and runs them through
// the heuristic parser. Scanned statements without a text layer yield no
// rows.
type PDFParser struct {
	Heuristic *HeuristicParser
}

// Format returns the parser name.
func (p *PDFParser) Format() string { return "pdf" }

// Parse reads the whole PDF. LineNo counts extracted rows across pages.
func (p *PDFParser) Parse(r io.Reader) ([]Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}
	text, err := pdfText(data)
	if err != nil {
		return nil, err
	}
	h := p.Heuristic
	if h == nil {
		h = &HeuristicParser{}
	}
	return h.ParseText(text), nil
}

// pdfText joins the words of every text row, page after page. The PDF
// library panics on some malformed files.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var lines []string
	for i := 1; i <= rd.NumPage(); i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
