package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

var errNoWorkbookXML = errors.New("xl/workbook.xml not found")

// XLSXParser reads SpreadsheetML workbooks, one section per sheet. Each
// non-empty row becomes one line with cells separated by " | ".
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser { return &XLSXParser{} }

func (p *XLSXParser) Extensions() []string { return []string{".xlsx"} }

func (p *XLSXParser) Parse(ctx context.Context, name string) ([]domain.Section, error) {
	reader, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	files := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		files[f.Name] = f
	}

	var book workbookXML
	if f, ok := files["xl/workbook.xml"]; !ok {
		return nil, errNoWorkbookXML
	} else if err := decodeZipXML(f, &book); err != nil {
		return nil, fmt.Errorf("workbook: %w", err)
	}

	var rels relationshipsXML
	if f, ok := files["xl/_rels/workbook.xml.rels"]; ok {
		if err := decodeZipXML(f, &rels); err != nil {
			return nil, fmt.Errorf("workbook rels: %w", err)
		}
	}
	targets := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		targets[r.ID] = resolveTarget(r.Target)
	}

	var shared []string
	if f, ok := files["xl/sharedStrings.xml"]; ok {
		var sst sharedStringsXML
		if err := decodeZipXML(f, &sst); err != nil {
			return nil, fmt.Errorf("shared strings: %w", err)
		}
		shared = make([]string, len(sst.Items))
		for i, si := range sst.Items {
			shared[i] = si.text()
		}
	}

	var sections []domain.Section
	for _, sheet := range book.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, ok := files[targets[sheet.RelID]]
		if !ok {
			return nil, fmt.Errorf("sheet %q: part %q not found", sheet.Name, targets[sheet.RelID])
		}
		var ws worksheetXML
		if err := decodeZipXML(f, &ws); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}

		var lines []string
		for _, row := range ws.Rows {
			cells := make([]string, 0, len(row.Cells))
			empty := true
			for _, c := range row.Cells {
				v := strings.TrimSpace(c.value(shared))
				if v != "" {
					empty = false
				}
				cells = append(cells, v)
			}
			if !empty {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}

		sections = append(sections, domain.Section{
			Text: strings.Join(lines, "\n"),
			Metadata: map[string]string{
				"format": "xlsx",
				"sheet":  sheet.Name,
			},
		})
	}
	return sections, nil
}

func decodeZipXML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(io.LimitReader(rc, 256<<20)).Decode(v)
}

// resolveTarget maps a workbook relationship target to its zip entry name.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("xl", target)
}

type workbookXML struct {
	Sheets []struct {
		Name  string `xml:"name,attr"`
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r richText) text() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	b.WriteString(r.T)
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type sharedStringsXML struct {
	Items []richText `xml:"si"`
}

type worksheetXML struct {
	Rows []struct {
		Cells []cellXML `xml:"c"`
	} `xml:"sheetData>row"`
}

type cellXML struct {
	Type   string   `xml:"t,attr"`
	Value  string   `xml:"v"`
	Inline richText `xml:"is"`
}

func (c cellXML) value(shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return c.Inline.text()
	case "b":
		if strings.TrimSpace(c.Value) == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return c.Value
	}
}
