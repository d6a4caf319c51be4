package extract

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// Kind is the coarse family of an accepted upload.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindText  Kind = "txt"
	KindImage Kind = "image"
)

var allowed = map[string]Kind{
	MimePDF:  KindPDF,
	MimeDOCX: KindDOCX,
	MimeText: KindText,
	MimeJPEG: KindImage,
	MimePNG:  KindImage,
}

// AllowedMediaTypes lists the accepted declared media types.
func AllowedMediaTypes() []string {
	return []string{MimePDF, MimeDOCX, MimeText, MimeJPEG, MimePNG}
}

// Result is the text pulled out of one upload.
type Result struct {
	Text      string
	CharCount int
	Kind      Kind
	MediaType string
}

// Extractor turns uploaded bytes into plain text.
type Extractor struct {
	ocr OCR
}

// New returns an Extractor. ocr may be nil, in which case images fail with ErrOCRUnavailable.
func New(ocr OCR) *Extractor {
	return &Extractor{ocr: ocr}
}

// Normalize maps a declared media type (and file name, for zip-wrapped DOCX)
// onto the allow-list. It does not look at the payload.
func Normalize(declared, fileName string) (string, Kind, error) {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if clean == "image/jpg" {
		clean = MimeJPEG
	}
	if clean == "application/zip" || clean == "application/octet-stream" || clean == "" {
		if strings.ToLower(filepath.Ext(fileName)) == ".docx" {
			clean = MimeDOCX
		}
	}
	kind, ok := allowed[clean]
	if !ok {
		if clean == "" {
			clean = "unknown"
		}
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedMediaType, clean)
	}
	return clean, kind, nil
}

// Extract validates the declared type, checks it against the real bytes and
// returns the text. An empty payload yields an empty result.
func (e *Extractor) Extract(ctx context.Context, data []byte, declared, fileName string) (Result, error) {
	mediaType, kind, err := Normalize(declared, fileName)
	if err != nil {
		return Result{}, err
	}
	res := Result{Kind: kind, MediaType: mediaType}
	if len(data) == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	detected, err := verifyContent(data, mediaType)
	if err != nil {
		return Result{}, err
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindText:
		text, err = extractPlain(data, charsetOf(detected))
	case KindImage:
		if e.ocr == nil {
			return Result{}, fmt.Errorf("%w: %w", ErrExtraction, ErrOCRUnavailable)
		}
		text, err = e.ocr.Recognize(ctx, data, mediaType)
	}
	if err != nil {
		return Result{}, err
	}

	res.Text = text
	res.CharCount = utf8.RuneCountInString(text)
	return res, nil
}

// verifyContent rejects payloads whose sniffed type contradicts the declared one
// and returns the sniffed type.
func verifyContent(data []byte, mediaType string) (*mimetype.MIME, error) {
	detected := mimetype.Detect(data)
	var ok bool
	switch mediaType {
	case MimeDOCX:
		// some writers order the zip entries so only the container is recognised
		ok = detected.Is(MimeDOCX) || detected.Is("application/zip")
	case MimeText:
		for m := detected; m != nil; m = m.Parent() {
			if m.Is(MimeText) {
				ok = true
				break
			}
		}
	default:
		ok = detected.Is(mediaType)
	}
	if !ok {
		return nil, fmt.Errorf("%w: declared %s but content is %s", ErrExtraction, mediaType, detected.String())
	}
	return detected, nil
}

// charsetOf returns the lower-cased charset parameter of a sniffed type, if any.
func charsetOf(m *mimetype.MIME) string {
	if m == nil {
		return ""
	}
	_, params, err := mime.ParseMediaType(m.String())
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}
