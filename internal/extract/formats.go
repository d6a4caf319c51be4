package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", ErrExtraction, r)
		}
	}()

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %w", ErrExtraction, err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %w", ErrExtraction, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: pdf: %w", ErrExtraction, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %w", ErrExtraction, err)
	}
	defer doc.Close()

	text, err := stripDocxXML(doc.Editable().GetContent())
	if err != nil {
		return "", fmt.Errorf("%w: docx: %w", ErrExtraction, err)
	}
	return text, nil
}

// stripDocxXML flattens WordprocessingML into text, keeping paragraph breaks and tabs.
func stripDocxXML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			switch t.Name.Local {
			case "tab":
				buf.WriteByte('\t')
			case "br", "cr":
				buf.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "p" && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// extractPlain decodes text to UTF-8. A BOM wins over the sniffed charset;
// bytes that are not valid UTF-8 and carry no BOM are read as Windows-1252,
// which is a superset of the printable Latin-1 range.
func extractPlain(data []byte, charset string) (string, error) {
	var fallback encoding.Encoding
	switch {
	case charset == "utf-16le":
		fallback = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case charset == "utf-16be":
		fallback = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case hasUTF16BOM(data), utf8.Valid(bytes.TrimPrefix(data, utf8BOM)):
		fallback = unicode.UTF8
	case charset == "iso-8859-1":
		fallback = charmap.ISO8859_1
	default:
		fallback = charmap.Windows1252
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(fallback.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s text: %w", ErrExtraction, charset, err)
	}
	text := strings.ToValidUTF8(string(decoded), "\uFFFD")
	// NUL is never meaningful in a CV and Postgres TEXT rejects it
	return strings.ReplaceAll(text, "\x00", ""), nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}
