package process

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/Sriram-PR/webtest/pkg/utils"
)

// DefaultCharset is the HTTP/1.1 default for text without a declared charset
const DefaultCharset = "iso-8859-1"

// Decode converts data from the named charset to UTF-8
// With strict set, bytes that are not valid in the charset are an error; otherwise they are dropped
// Returns the text and the canonical name of the charset used
func Decode(data []byte, label string, strict bool) (string, string, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	enc, name := charset.Lookup(label)
	if enc == nil {
		return "", "", fmt.Errorf("%w: unknown charset '%s'", utils.ErrDecoding, label)
	}

	if name == "utf-8" {
		if utf8.Valid(data) {
			return string(data), name, nil
		}
		if strict {
			return "", name, fmt.Errorf("%w: invalid utf-8", utils.ErrDecoding)
		}
		return strings.ToValidUTF8(string(data), ""), name, nil
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", name, fmt.Errorf("%w: %s: %w", utils.ErrDecoding, name, err)
	}
	text := string(decoded)
	if strings.ContainsRune(text, utf8.RuneError) && strict {
		return "", name, fmt.Errorf("%w: invalid %s", utils.ErrDecoding, name)
	}
	if !strict {
		text = strings.ReplaceAll(text, string(utf8.RuneError), "")
	}
	return text, name, nil
}

// DecodeBody applies the crawl charset policy to a fetched body
// A charset declared by the response wins and is decoded leniently; otherwise the
// charset inherited from the referrer is tried strictly, falling back to iso-8859-1
func DecodeBody(data []byte, declared, inherited string) (string, string) {
	if declared != "" {
		if text, name, err := Decode(data, declared, false); err == nil {
			return text, name
		}
	}
	if inherited != "" {
		if text, name, err := Decode(data, inherited, true); err == nil {
			return text, name
		}
	}
	text, name, _ := Decode(data, DefaultCharset, false)
	return text, name
}
