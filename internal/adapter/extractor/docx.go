package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"docqa/internal/domain"
)

var errNoDocumentXML = errors.New("word/document.xml not found")

// DOCXParser reads the body paragraphs of a WordprocessingML document.
type DOCXParser struct{}

func NewDOCXParser() *DOCXParser { return &DOCXParser{} }

func (p *DOCXParser) Extensions() []string { return []string{".docx"} }

func (p *DOCXParser) Parse(_ context.Context, path string) ([]domain.Section, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}

		text, err := parseDocumentXML(content)
		if err != nil {
			return nil, err
		}
		return []domain.Section{{
			Text:     text,
			Metadata: map[string]string{"format": "docx"},
		}}, nil
	}
	return nil, errNoDocumentXML
}

// parseDocumentXML walks the body in document order. Paragraphs become one
// line each and table rows become one line with cells separated by " | ".
// Nested tables fold into the enclosing cell.
func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		lines  []string
		para   strings.Builder
		cell   []string
		row    []string
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
			case "tr":
				if depth == 1 {
					row = nil
				}
			case "tc":
				if depth == 1 {
					cell = nil
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth == 0 {
					lines = append(lines, para.String())
				} else {
					cell = append(cell, para.String())
				}
			case "tc":
				if depth == 1 {
					row = append(row, strings.TrimSpace(strings.Join(cell, " ")))
				}
			case "tr":
				if depth == 1 {
					lines = append(lines, strings.Join(row, " | "))
				}
			case "tbl":
				depth--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
