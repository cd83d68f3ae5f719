package extractor

import (
	"context"
	"strconv"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// PDFParser reads the text layer of a PDF, one section per page.
// Scanned pages without a text layer come back empty.
type PDFParser struct{}

func NewPDFParser() *PDFParser { return &PDFParser{} }

func (p *PDFParser) Extensions() []string { return []string{".pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) ([]domain.Section, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sections []domain.Section
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		sections = append(sections, domain.Section{
			Text: text,
			Metadata: map[string]string{
				"format": "pdf",
				"page":   strconv.Itoa(i),
			},
		})
	}
	return sections, nil
}
