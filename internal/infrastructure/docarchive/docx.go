// Package docarchive reads the legacy incident archive kept as a Word document.
package docarchive

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"HangarWatch/internal/domain"
)

const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"
)

var (
	titleExpr    = regexp.MustCompile(`Article Title:\s*(.*)`)
	sourceExpr   = regexp.MustCompile(`Publication name:\s*(.*)`)
	locationExpr = regexp.MustCompile(`Accident Location:\s*(.*)`)
	dateExpr     = regexp.MustCompile(`Article Date:\s*(.*)`)
	authorExpr   = regexp.MustCompile(`Author:\t*(.*)`)
	linkExpr     = regexp.MustCompile(`Article Link:\s*(\S+)`)
	contentExpr  = regexp.MustCompile(`Article Link:\s*\S+\s*([\s\S]+)`)
)

// ParseFile opens a .docx archive and extracts its incident records.
func ParseFile(path string) ([]domain.RawRecord, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer zr.Close()

	return parseZip(&zr.Reader)
}

// Parse reads a .docx archive from r.
func Parse(r io.ReaderAt, size int64) ([]domain.RawRecord, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	return parseZip(zr)
}

func parseZip(zr *zip.Reader) ([]domain.RawRecord, error) {
	headings := map[string]bool{}
	if f := findPart(zr, stylesPart); f != nil {
		var err error
		if headings, err = readHeadingStyles(f); err != nil {
			return nil, err
		}
	}

	doc := findPart(zr, documentPart)
	if doc == nil {
		return nil, errors.New("docx has no word/document.xml")
	}
	paragraphs, err := readParagraphs(doc)
	if err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	for _, section := range splitSections(paragraphs, headings) {
		rec := ExtractRecord(section)
		if rec.Title != "" {
			records = append(records, rec)
		}
	}
	return records, nil
}

// ExtractRecord pulls the labelled fields out of one archive section.
func ExtractRecord(section string) domain.RawRecord {
	return domain.RawRecord{
		Title:       match(titleExpr, section),
		Source:      match(sourceExpr, section),
		Location:    match(locationExpr, section),
		PublishedAt: match(dateExpr, section),
		Author:      match(authorExpr, section),
		URL:         match(linkExpr, section),
		Content:     match(contentExpr, section),
	}
}

func match(expr *regexp.Regexp, s string) string {
	m := expr.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

type paragraph struct {
	style string
	text  string
}

// splitSections starts a new section at every heading paragraph; headings themselves are dropped.
func splitSections(paragraphs []paragraph, headings map[string]bool) []string {
	var (
		sections []string
		current  strings.Builder
	)
	for _, p := range paragraphs {
		if isHeading(p.style, headings) {
			if current.Len() > 0 {
				sections = append(sections, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteString(p.text)
		current.WriteByte('\n')
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

func isHeading(styleID string, headings map[string]bool) bool {
	if styleID == "" {
		return false
	}
	return headings[styleID] || strings.HasPrefix(strings.ToLower(styleID), "heading")
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readParagraphs(f *zip.File) ([]paragraph, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	var (
		out    []paragraph
		cur    *paragraph
		text   strings.Builder
		inText bool
		inRun  bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur = &paragraph{}
				text.Reset()
			case "pStyle":
				if cur != nil {
					cur.style = attr(t, "val")
				}
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				if cur != nil && inRun {
					text.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil && inRun {
					text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				if cur != nil {
					cur.text = text.String()
					out = append(out, *cur)
					cur = nil
				}
			}
		case xml.CharData:
			if inText && cur != nil {
				text.Write(t)
			}
		}
	}
	return out, nil
}

// readHeadingStyles maps style ids whose display name starts with "heading".
func readHeadingStyles(f *zip.File) (map[string]bool, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	headings := map[string]bool{}
	var currentID string
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return headings, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "style":
			currentID = attr(start, "styleId")
		case "name":
			if currentID != "" && strings.HasPrefix(strings.ToLower(attr(start, "val")), "heading") {
				headings[currentID] = true
			}
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
