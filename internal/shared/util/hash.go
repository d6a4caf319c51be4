package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// FallbackName gives an upload whose name was rejected a stable storage name
// ("upload-<16 hex>.<ext>"). The digest is taken over the raw name, so the
// same rejected name always maps to the same object.
func FallbackName(fileName string) string {
	sum := sha256.Sum256([]byte(fileName))
	return "upload-" + hex.EncodeToString(sum[:8]) + extension(fileName)
}

// extension keeps a short alphanumeric suffix such as ".pdf" and drops anything else.
func extension(fileName string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, "\\", "/")))
	if len(ext) < 2 || len(ext) > maxExtLen+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
