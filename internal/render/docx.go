package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"time"
)

const (
	HeadingSummary         = "Professional Summary"
	HeadingExperience      = "Core Experience & Background"
	HeadingAdditional      = "Additional Skills & Information"
	HeadingRecommendations = "Recommendations"
)

// Document is the content of an enhanced CV.
type Document struct {
	Title           string
	Summary         string
	CVText          string
	Skills          []string
	Experience      []string
	Achievements    []string
	Recommendations []string
	Keywords        []string
	Footer          string
}

// ErrNoContent is returned when a document has neither CV text nor a summary.
var ErrNoContent = errors.New("document has no content")

// RenderEnhancedCV writes doc as a minimal WordprocessingML package.
func RenderEnhancedCV(doc Document) ([]byte, error) {
	if strings.TrimSpace(doc.CVText) == "" && strings.TrimSpace(doc.Summary) == "" {
		return nil, ErrNoContent
	}
	body := buildBody(doc)

	var out bytes.Buffer
	writer := zip.NewWriter(&out)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/document.xml", documentHeader + body + documentFooter},
	}
	for _, p := range parts {
		if err := writeZipFile(writer, p.name, []byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func buildBody(doc Document) string {
	var b strings.Builder
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = "Enhanced Professional CV"
	}
	paragraph(&b, "Title", title)

	if s := strings.TrimSpace(doc.Summary); s != "" {
		paragraph(&b, "Heading1", HeadingSummary)
		paragraph(&b, "", s)
	}

	paragraph(&b, "Heading1", HeadingExperience)
	for _, section := range strings.Split(doc.CVText, "\n\n") {
		for _, line := range strings.Split(section, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				paragraph(&b, "", line)
			}
		}
	}

	if len(doc.Skills)+len(doc.Experience)+len(doc.Achievements) > 0 {
		paragraph(&b, "Heading1", HeadingAdditional)
		list(&b, "Skills", doc.Skills)
		list(&b, "Experience", doc.Experience)
		list(&b, "Achievements", doc.Achievements)
	}

	if len(doc.Recommendations)+len(doc.Keywords) > 0 {
		paragraph(&b, "Heading1", HeadingRecommendations)
		list(&b, "Suggestions", doc.Recommendations)
		list(&b, "Keywords to Highlight", doc.Keywords)
	}

	if f := strings.TrimSpace(doc.Footer); f != "" {
		paragraph(&b, "", f)
	}
	return b.String()
}

func list(b *strings.Builder, heading string, items []string) {
	var kept []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return
	}
	paragraph(b, "Heading3", heading)
	for _, it := range kept {
		paragraph(b, "ListBullet", it)
	}
}

func paragraph(b *strings.Builder, style, text string) {
	b.WriteString("<w:p>")
	if style != "" {
		b.WriteString(`<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`)
	}
	b.WriteString(`<w:r><w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString("</w:t></w:r></w:p>")
}

func writeZipFile(writer *zip.Writer, name string, content []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	w, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
