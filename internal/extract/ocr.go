package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/semaphore"

	"cv-analyzer/internal/shared/telemetry"
)

// OCR recognises text in an image payload.
type OCR interface {
	Recognize(ctx context.Context, image []byte, mediaType string) (string, error)
}

// Tesseract runs the tesseract command line engine.
type Tesseract struct {
	command string
	lang    string
	sem     *semaphore.Weighted
	tempDir string
}

// NewTesseract returns a Tesseract OCR bounded to maxConcurrent runs.
func NewTesseract(command, lang string, maxConcurrent int) *Tesseract {
	if strings.TrimSpace(command) == "" {
		command = "tesseract"
	}
	if strings.TrimSpace(lang) == "" {
		lang = "eng"
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Tesseract{
		command: command,
		lang:    lang,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Available reports whether the OCR binary can be found.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.command)
	return err == nil
}

// Recognize writes the image to a temp file, runs the engine and returns stdout.
// The temp file is removed on every return path.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, mediaType string) (string, error) {
	bin, err := exec.LookPath(t.command)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, ErrOCRUnavailable)
	}

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer t.sem.Release(1)

	ext := ".png"
	if mediaType == MimeJPEG {
		ext = ".jpg"
	}
	tmp, err := os.CreateTemp(t.tempDir, "cv-ocr-*"+ext)
	if err != nil {
		return "", fmt.Errorf("%w: ocr temp file: %w", ErrExtraction, err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: ocr temp file: %w", ErrExtraction, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: ocr temp file: %w", ErrExtraction, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path, "stdout", "-l", t.lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			telemetry.Warn("ocr.failed", map[string]any{
				"exit_code": exitErr.ExitCode(),
				"stderr":    truncate(stderr.String(), 300),
			})
		}
		return "", fmt.Errorf("%w: ocr: %w", ErrExtraction, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
