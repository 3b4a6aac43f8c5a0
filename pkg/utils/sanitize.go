package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// --- Filename Sanitization ---
var nonWordChars = regexp.MustCompile(`[^\w.,-]`) // Anything outside ASCII word chars and . , -
const maxFilenameLength = 100                      // Max length for sanitized filenames

// asciiFold decomposes and drops everything that is not ASCII (accents become base letters)
func asciiFold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizeFilename turns name into a portable file name component
func NormalizeFilename(name string) string {
	sanitized := nonWordChars.ReplaceAllString(asciiFold(strings.TrimSpace(name)), "_")
	sanitized = strings.TrimSpace(sanitized)
	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
	}
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "untitled"
	}
	return sanitized
}

// NormalizeFilepath normalizes every component of a slash separated path
func NormalizeFilepath(name string) string {
	parts := strings.Split(filepath.ToSlash(name), "/")
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			if i == 0 {
				out = append(out, "") // Keep absolute paths absolute
			}
			continue
		}
		if part == "." || part == ".." {
			out = append(out, part)
			continue
		}
		out = append(out, NormalizeFilename(part))
	}
	return filepath.FromSlash(strings.Join(out, "/"))
}
