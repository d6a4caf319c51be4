package extract

import "errors"

var (
	// ErrUnsupportedMediaType is returned for declared types outside the allow-list.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrExtraction is returned when a nominally supported file cannot be processed.
	ErrExtraction = errors.New("text extraction failed")
	// ErrOCRUnavailable is wrapped into ErrExtraction when no OCR engine is installed.
	ErrOCRUnavailable = errors.New("image text extraction is not available")
)
