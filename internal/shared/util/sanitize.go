package util

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameRunes = 120
	maxExtLen    = 5
)

// ErrInvalidFileName means nothing usable was left of an upload's name.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName reduces a client-supplied upload name to a single safe
// path segment. Directory components are dropped, whitespace runs become "_",
// control and shell-sensitive characters are removed, leading dots are
// trimmed, and long names are shortened with the extension kept.
func SanitizeFileName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", ErrInvalidFileName
	}
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case unicode.IsControl(r), strings.ContainsRune(`<>:"|?*%$&;'`+"`", r):
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	s := strings.TrimLeft(b.String(), ".")
	if s == "" {
		return "", ErrInvalidFileName
	}
	return truncateName(s), nil
}

func truncateName(s string) string {
	if utf8.RuneCountInString(s) <= maxNameRunes {
		return s
	}
	ext := extension(s)
	stem := []rune(strings.TrimSuffix(s, ext))
	keep := maxNameRunes - len(ext)
	if keep > len(stem) {
		keep = len(stem)
	}
	return string(stem[:keep]) + ext
}
