package parse

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// defaultPorts lists the port each supported scheme drops from canonical addresses
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// displayEscaper keeps URL delimiters escaped in display segments so the display form re-parses to the same URL
var displayEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "?", "%3F", "#", "%23")

// fragmentEscaper does the same for the display fragment
var fragmentEscaper = strings.NewReplacer("%", "%25", "#", "%23")

// escapeLonePercent escapes every % that does not start a %XX escape, as browsers do before sending a link
func escapeLonePercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// EncodeHostname lowercases a hostname and IDNA-encodes every non-ASCII label
// Labels that cannot be encoded are kept lowercased as given
func EncodeHostname(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	for i, label := range labels {
		if isASCII(label) {
			continue
		}
		encoded, err := idna.Lookup.ToASCII(label)
		if err != nil {
			encoded, err = idna.Punycode.ToASCII(label)
			if err != nil {
				continue
			}
		}
		labels[i] = strings.ToLower(encoded)
	}
	return strings.Join(labels, ".")
}

// stripDefaultPort returns "" when port is the scheme's default port
func stripDefaultPort(scheme, port string) string {
	if defaultPorts[scheme] == port {
		return ""
	}
	return port
}

// normalizedPath holds both renderings of a cleaned path plus its decoded segments
type normalizedPath struct {
	display  string
	encoded  string
	segments []string
}

// normalizePath removes dot segments from an escaped path, forcing a leading "/" for absolute URLs
// A trailing "/" survives when the original path was longer than "/"
func normalizePath(escaped string, absolute bool) normalizedPath {
	p := escaped
	if absolute && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p == "" {
		return normalizedPath{}
	}

	trailing := len(p) > 1 && strings.HasSuffix(p, "/")
	cleaned := path.Clean(p)
	if trailing && cleaned != "/" {
		cleaned += "/"
	}

	raw := strings.Split(cleaned, "/")
	display := make([]string, len(raw))
	encoded := make([]string, len(raw))
	segments := make([]string, 0, len(raw))
	for i, seg := range raw {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			decoded = seg
		}
		display[i] = displayEscaper.Replace(decoded)
		encoded[i] = url.PathEscape(decoded)
		if decoded != "" {
			segments = append(segments, decoded)
		}
	}

	return normalizedPath{
		display:  strings.Join(display, "/"),
		encoded:  strings.Join(encoded, "/"),
		segments: segments,
	}
}

// splitParent splits a path into its parent directory (with trailing "/") and file name
func splitParent(p string) (parent, file string) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", p
	}
	return p[:idx+1], p[idx+1:]
}

// hasRealScheme reports whether raw starts with "scheme:" where the colon is not a host:port separator
func hasRealScheme(raw string) bool {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9', c == '+', c == '-', c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			if i == 0 {
				return false
			}
			rest := raw[i+1:]
			if rest == "" {
				return false
			}
			// "localhost:8080/x" parses as scheme "localhost" but is a host with a port
			return rest[0] < '0' || rest[0] > '9'
		default:
			return false
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
