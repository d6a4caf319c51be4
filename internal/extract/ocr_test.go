package extract

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "fake-ocr")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestTesseractRemovesTempFile(t *testing.T) {
	seen := filepath.Join(t.TempDir(), "seen")
	script := writeScript(t, `echo "$1" > "`+seen+`"
echo "  Jane Doe  "
`)
	ocr := NewTesseract(script, "", 1)
	ocr.tempDir = t.TempDir()

	text, err := ocr.Recognize(context.Background(), jpegBytes, MimeJPEG)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", text)

	raw, err := os.ReadFile(seen)
	require.NoError(t, err)
	tmpPath := strings.TrimSpace(string(raw))
	assert.True(t, strings.HasSuffix(tmpPath, ".jpg"), tmpPath)
	_, err = os.Stat(tmpPath)
	assert.True(t, os.IsNotExist(err), "temp file should be removed")
}

func TestTesseractFailureRemovesTempFile(t *testing.T) {
	script := writeScript(t, "echo broken >&2\nexit 3\n")
	ocr := NewTesseract(script, "eng", 1)
	ocr.tempDir = t.TempDir()

	_, err := ocr.Recognize(context.Background(), jpegBytes, MimePNG)
	require.ErrorIs(t, err, ErrExtraction)

	entries, err := os.ReadDir(ocr.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTesseractMissingBinary(t *testing.T) {
	ocr := NewTesseract("definitely-not-an-ocr-binary", "eng", 1)
	assert.False(t, ocr.Available())
	_, err := ocr.Recognize(context.Background(), jpegBytes, MimePNG)
	require.ErrorIs(t, err, ErrExtraction)
	require.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestTesseractHonoursCancelledContext(t *testing.T) {
	script := writeScript(t, "echo text\n")
	ocr := NewTesseract(script, "eng", 1)
	ocr.tempDir = t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	// hold the only slot so Acquire blocks on the cancelled context
	require.NoError(t, ocr.sem.Acquire(context.Background(), 1))
	defer ocr.sem.Release(1)
	cancel()

	_, err := ocr.Recognize(ctx, jpegBytes, MimePNG)
	require.ErrorIs(t, err, context.Canceled)
}
