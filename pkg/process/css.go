package process

import (
	"regexp"
	"strings"

	"github.com/gorilla/css/scanner"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

var cssEscape = regexp.MustCompile(`\\(.)`)

// CSSResult holds the references found in a stylesheet or a style attribute
type CSSResult struct {
	Links   []parse.URL // Every url() and @import target, document order
	Imports []parse.URL // @import targets only
	Charset string      // Charset declared by @charset, or the one given
}

// unquote strips the quotes of a CSS string token and resolves its escapes
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return cssEscape.ReplaceAllString(s, "$1")
}

// uriValue returns the reference inside a url(...) token
func uriValue(s string) string {
	s = strings.TrimSpace(s[len("url("):])
	s = strings.TrimSpace(strings.TrimSuffix(s, ")"))
	return unquote(s)
}

// cssTokens yields the significant tokens of body; whitespace and comments are dropped
func cssTokens(body string) []*scanner.Token {
	var tokens []*scanner.Token
	s := scanner.New(body)
	for {
		tok := s.Next()
		switch tok.Type {
		case scanner.TokenEOF, scanner.TokenError:
			return tokens
		case scanner.TokenS, scanner.TokenComment:
			continue
		}
		tokens = append(tokens, tok)
	}
}

// reference returns the target of a url() token, a url( function followed by a string, or a bare string when allowString is set
// The second result is the number of tokens consumed
func reference(tokens []*scanner.Token, allowString bool) (string, int, bool) {
	if len(tokens) == 0 {
		return "", 0, false
	}
	tok := tokens[0]
	switch {
	case tok.Type == scanner.TokenURI:
		return uriValue(tok.Value), 1, true
	case tok.Type == scanner.TokenString && allowString:
		return unquote(tok.Value), 1, true
	case tok.Type == scanner.TokenFunction && strings.EqualFold(tok.Value, "url("):
		if len(tokens) > 1 && tokens[1].Type == scanner.TokenString {
			return unquote(tokens[1].Value), 2, true
		}
	}
	return "", 0, false
}

// ExtractCSS finds url() and @import references in body and resolves them against base
// References that do not resolve to an http(s) URL are skipped
func ExtractCSS(body string, base parse.URL, charset string) CSSResult {
	res := CSSResult{Charset: strings.ToLower(charset)}

	seen := make(map[string]struct{})
	add := func(raw string) (parse.URL, bool) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return parse.URL{}, false
		}
		u, err := base.Hyperlink(raw)
		if err != nil {
			return parse.URL{}, false
		}
		key := u.HashKey()
		if _, dup := seen[key]; dup {
			return u, true
		}
		seen[key] = struct{}{}
		res.Links = append(res.Links, u)
		return u, true
	}

	tokens := cssTokens(body)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == scanner.TokenAtKeyword {
			switch strings.ToLower(tok.Value) {
			case "@charset":
				if i+1 < len(tokens) && tokens[i+1].Type == scanner.TokenString {
					res.Charset = strings.ToLower(unquote(tokens[i+1].Value))
					i++
				}
			case "@import":
				if raw, n, ok := reference(tokens[i+1:], true); ok {
					if u, ok := add(raw); ok {
						res.Imports = append(res.Imports, u)
					}
					i += n
				}
			}
			continue
		}
		if raw, n, ok := reference(tokens[i:], false); ok {
			add(raw)
			i += n - 1
		}
	}
	return res
}

// ScanCSS decodes a stylesheet and extracts its references
// When the sheet declares another charset through @charset it is decoded again with it
func ScanCSS(data []byte, base parse.URL, declared, inherited string) CSSResult {
	text, name := DecodeBody(data, declared, inherited)
	res := ExtractCSS(text, base, name)
	if res.Charset != "" && res.Charset != name {
		if redecoded, used, err := Decode(data, res.Charset, false); err == nil && used != name {
			res = ExtractCSS(redecoded, base, used)
			res.Charset = used
			return res
		}
	}
	res.Charset = name
	return res
}
