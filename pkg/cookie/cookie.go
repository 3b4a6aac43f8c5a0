package cookie

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

// now is replaced in tests
var now = time.Now

// expiresLayouts are tried in order when reading an Expires attribute
var expiresLayouts = []string{
	time.RFC1123,                    // Mon, 02 Jan 2006 15:04:05 MST
	"Mon, 02-Jan-2006 15:04:05 MST", // Netscape draft
	time.RFC850,                     // Monday, 02-Jan-06 15:04:05 MST
	"Mon Jan _2 15:04:05 MST 2006",  // C asctime with zone
}

// Attributes are the raw Set-Cookie attributes given to New
type Attributes struct {
	Domain   string
	Path     string
	Expires  string
	MaxAge   string
	HTTPOnly bool
	Secure   bool
	Extra    map[string]string // Unknown attributes, kept but not interpreted
}

// Identity is what makes two cookies the same cookie; value and expiry are not part of it
type Identity struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Checks selects which optional tests Match performs
type Checks struct {
	Expired bool
	Secure  bool
}

var (
	StrictChecks  = Checks{Expired: true, Secure: true}
	RelaxedChecks = Checks{}
)

// Cookie is an immutable HTTP cookie
type Cookie struct {
	name     string
	value    string
	domain   string
	path     string
	expires  time.Time // zero for session cookies
	httpOnly bool
	secure   bool
	extra    map[string]string
}

// New builds a cookie, normalizing domain and path and resolving expiry
// Max-Age wins over Expires; an unreadable expiry makes a session cookie
func New(name, value string, attrs Attributes) Cookie {
	c := Cookie{
		name:     name,
		value:    value,
		domain:   normalizeDomain(attrs.Domain),
		path:     normalizePath(attrs.Path),
		httpOnly: attrs.HTTPOnly,
		secure:   attrs.Secure,
	}
	if len(attrs.Extra) > 0 {
		c.extra = make(map[string]string, len(attrs.Extra))
		for k, v := range attrs.Extra {
			c.extra[k] = v
		}
	}
	c.expires = resolveExpiry(attrs.MaxAge, attrs.Expires)
	return c
}

func normalizeDomain(domain string) string {
	return parse.EncodeHostname(strings.TrimLeft(strings.TrimSpace(domain), "."))
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	if decoded, err := url.PathUnescape(cleaned); err == nil {
		return decoded
	}
	return cleaned
}

func resolveExpiry(maxAge, expires string) time.Time {
	if maxAge = strings.TrimSpace(maxAge); maxAge != "" {
		if seconds, err := strconv.ParseInt(maxAge, 10, 64); err == nil {
			return now().Add(time.Duration(seconds) * time.Second).UTC()
		}
	}
	if expires = strings.TrimSpace(expires); expires != "" {
		for _, layout := range expiresLayouts {
			if t, err := time.Parse(layout, expires); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

func (c Cookie) Name() string       { return c.name }
func (c Cookie) Value() string      { return c.value }
func (c Cookie) Domain() string     { return c.domain }
func (c Cookie) Path() string       { return c.path }
func (c Cookie) Expires() time.Time { return c.expires }
func (c Cookie) HTTPOnly() bool     { return c.httpOnly }
func (c Cookie) Secure() bool       { return c.secure }

// Extra returns an unknown attribute kept from the Set-Cookie line
func (c Cookie) Extra(name string) (string, bool) {
	v, ok := c.extra[strings.ToLower(name)]
	return v, ok
}

func (c Cookie) IsSession() bool {
	return c.expires.IsZero()
}

func (c Cookie) IsExpired() bool {
	return !c.IsSession() && now().After(c.expires)
}

func (c Cookie) Identity() Identity {
	return Identity{Name: c.name, Domain: c.domain, Path: c.path, Secure: c.secure, HTTPOnly: c.httpOnly}
}

// Match reports whether the cookie should be sent with a request for scheme://domain/path
func (c Cookie) Match(scheme, domain, requestPath string, checks Checks) bool {
	if checks.Expired && c.IsExpired() {
		return false
	}
	if checks.Secure && c.secure && !strings.EqualFold(scheme, "https") {
		return false
	}
	return c.matchPath(requestPath) && c.matchDomain(domain)
}

// MatchURL is Match with StrictChecks against a canonical URL
func (c Cookie) MatchURL(u parse.URL) bool {
	return c.Match(u.Scheme(), u.HostnameEncoded(), requestPath(u), StrictChecks)
}

func (c Cookie) matchPath(requestPath string) bool {
	if c.path == requestPath {
		return true
	}
	if !strings.HasPrefix(requestPath, c.path) {
		return false
	}
	return strings.HasSuffix(c.path, "/") || requestPath[len(c.path)] == '/'
}

func (c Cookie) matchDomain(domain string) bool {
	domain = strings.ToLower(domain)
	if c.domain == domain {
		return true
	}
	return strings.HasSuffix(domain, "."+c.domain) && isHostname(domain)
}

// isHostname accepts 1 to 253 characters of [a-z0-9.-] with at least one letter, so IP addresses never suffix-match
func isHostname(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	letter := false
	for i := 0; i < len(domain); i++ {
		switch c := domain[i]; {
		case 'a' <= c && c <= 'z':
			letter = true
		case '0' <= c && c <= '9', c == '-', c == '.':
		default:
			return false
		}
	}
	return letter
}

// Pair renders name=value for a Cookie request header
func (c Cookie) Pair() string {
	if s := (&http.Cookie{Name: c.name, Value: c.value}).String(); s != "" {
		return s
	}
	return c.name + "=" + c.value
}

// String renders the cookie as a Set-Cookie header value
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.name + "=" + c.value)
	if c.path != "" {
		b.WriteString("; Path=" + c.path)
	}
	if c.domain != "" {
		b.WriteString("; Domain=" + c.domain)
	}
	if !c.IsSession() {
		maxAge := int64(c.expires.Sub(now()).Seconds())
		if maxAge < 0 {
			maxAge = 0
		}
		fmt.Fprintf(&b, "; Max-Age=%d", maxAge)
		b.WriteString("; Expires=" + c.expires.UTC().Format(http.TimeFormat))
	}
	if c.httpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.secure {
		b.WriteString("; Secure")
	}
	return b.String()
}

// requestPath is the path a cookie is matched against for u
func requestPath(u parse.URL) string {
	if p := u.Path(); p != "" {
		return p
	}
	return "/"
}
