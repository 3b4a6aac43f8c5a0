package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

var (
	ErrMalformedCookie = errors.New("malformed set-cookie line")
	ErrCookieRejected  = errors.New("cookie rejected")
)

// Jar holds cookies deduplicated by identity, in insertion order
// A Jar is not safe for concurrent use; copy it before handing it to another goroutine
type Jar struct {
	order   []Identity
	cookies map[Identity]Cookie
}

// NewJar returns a jar holding the given cookies
func NewJar(cookies ...Cookie) *Jar {
	j := &Jar{cookies: make(map[Identity]Cookie, len(cookies))}
	for _, c := range cookies {
		j.Add(c)
	}
	return j
}

// Add replaces any cookie with the same identity by c, moving it to the end
func (j *Jar) Add(c Cookie) {
	if j.cookies == nil {
		j.cookies = make(map[Identity]Cookie)
	}
	id := c.Identity()
	if _, exists := j.cookies[id]; exists {
		j.removeFromOrder(id)
	}
	j.cookies[id] = c
	j.order = append(j.order, id)
}

func (j *Jar) removeFromOrder(id Identity) {
	for i, existing := range j.order {
		if existing == id {
			j.order = append(j.order[:i], j.order[i+1:]...)
			return
		}
	}
}

// Get looks a cookie up by identity
func (j *Jar) Get(id Identity) (Cookie, bool) {
	if j == nil {
		return Cookie{}, false
	}
	c, ok := j.cookies[id]
	return c, ok
}

func (j *Jar) Len() int {
	if j == nil {
		return 0
	}
	return len(j.order)
}

// Cookies returns the cookies in insertion order
func (j *Jar) Cookies() []Cookie {
	if j == nil {
		return nil
	}
	out := make([]Cookie, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, j.cookies[id])
	}
	return out
}

// Copy returns an independent jar with the same cookies
func (j *Jar) Copy() *Jar {
	if j == nil {
		return NewJar()
	}
	return NewJar(j.Cookies()...)
}

// Union returns a new jar with every identity from both jars; the receiver's cookie wins on conflict
func (j *Jar) Union(other *Jar) *Jar {
	result := j.Copy()
	for _, c := range other.Cookies() {
		if _, exists := result.cookies[c.Identity()]; !exists {
			result.Add(c)
		}
	}
	return result
}

// ClearExpired drops every expired cookie
func (j *Jar) ClearExpired() {
	j.filter(func(c Cookie) bool { return !c.IsExpired() })
}

// ClearSession drops every session cookie
func (j *Jar) ClearSession() {
	j.filter(func(c Cookie) bool { return !c.IsSession() })
}

func (j *Jar) filter(keep func(Cookie) bool) {
	if j == nil {
		return
	}
	kept := j.order[:0]
	for _, id := range j.order {
		if keep(j.cookies[id]) {
			kept = append(kept, id)
		} else {
			delete(j.cookies, id)
		}
	}
	j.order = kept
}

// Match returns the cookies matching scheme://domain/path under checks
func (j *Jar) Match(scheme, domain, requestPath string, checks Checks) []Cookie {
	var out []Cookie
	for _, c := range j.Cookies() {
		if c.Match(scheme, domain, requestPath, checks) {
			out = append(out, c)
		}
	}
	return out
}

// MatchURL returns the cookies to send with a request for u
func (j *Jar) MatchURL(u parse.URL) []Cookie {
	return j.Match(u.Scheme(), u.HostnameEncoded(), requestPath(u), StrictChecks)
}

// SetPairs stores plain name/value pairs scoped to u's host and path
func (j *Jar) SetPairs(u parse.URL, pairs map[string]string) {
	for name, value := range pairs {
		j.Add(New(name, value, Attributes{Domain: u.HostnameEncoded(), Path: requestPath(u)}))
	}
}

// Set stores the cookies of raw Set-Cookie lines received for u
// A cookie declaring the request host is accepted as is; one declaring a parent domain is re-read
// with the strict parser and kept only if it domain-matches the host and is not a public suffix
// Malformed and rejected lines are reported in the joined error; the rest are still stored
func (j *Jar) Set(u parse.URL, lines ...string) error {
	host := u.HostnameEncoded()
	reqPath := requestPath(u)

	var errs []error
	for _, line := range lines {
		c, declared, err := parseLine(line, host, reqPath)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if normalizeDomain(declared) == host {
			j.Add(c)
			continue
		}
		if !c.Match(u.Scheme(), host, reqPath, RelaxedChecks) {
			errs = append(errs, fmt.Errorf("%w: %s=...; domain %q does not match %q", ErrCookieRejected, c.name, c.domain, host))
			continue
		}

		strict, err := parseStrict(line, host, reqPath)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		j.Add(strict)
	}
	return errors.Join(errs...)
}

// parseLine reads "name=value; attr=val; flag" leniently and returns the declared domain alongside the cookie
func parseLine(line, host, reqPath string) (Cookie, string, error) {
	var parts []string
	for _, p := range strings.Split(line, ";") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return Cookie{}, "", fmt.Errorf("%w: empty line", ErrMalformedCookie)
	}

	name, value, ok := strings.Cut(parts[0], "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Cookie{}, "", fmt.Errorf("%w: %q", ErrMalformedCookie, parts[0])
	}

	attrs := Attributes{Domain: host, Path: reqPath}
	for _, p := range parts[1:] {
		key, val, _ := strings.Cut(p, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "domain":
			attrs.Domain = val
		case "path":
			attrs.Path = val
		case "expires":
			attrs.Expires = val
		case "max-age":
			attrs.MaxAge = val
		case "httponly":
			attrs.HTTPOnly = true
		case "secure":
			attrs.Secure = true
		default:
			if attrs.Extra == nil {
				attrs.Extra = make(map[string]string)
			}
			attrs.Extra[key] = val
		}
	}

	return New(name, strings.TrimSpace(value), attrs), attrs.Domain, nil
}

func parseStrict(line, host, reqPath string) (Cookie, error) {
	hc, err := http.ParseSetCookie(line)
	if err != nil {
		return Cookie{}, fmt.Errorf("%w: %v", ErrCookieRejected, err)
	}

	domain := normalizeDomain(hc.Domain)
	if domain == "" {
		domain = host
	}
	if domain != host && !strings.HasSuffix(host, "."+domain) {
		return Cookie{}, fmt.Errorf("%w: %s domain %q does not match %q", ErrCookieRejected, hc.Name, domain, host)
	}
	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix == domain && domain != host {
		return Cookie{}, fmt.Errorf("%w: %s domain %q is a public suffix", ErrCookieRejected, hc.Name, domain)
	}

	attrs := Attributes{
		Domain:   domain,
		Path:     hc.Path,
		Expires:  hc.RawExpires,
		HTTPOnly: hc.HttpOnly,
		Secure:   hc.Secure,
	}
	if attrs.Path == "" {
		attrs.Path = reqPath
	}
	switch {
	case hc.MaxAge > 0:
		attrs.MaxAge = strconv.Itoa(hc.MaxAge)
	case hc.MaxAge < 0:
		attrs.MaxAge = "-1"
	}
	return New(hc.Name, hc.Value, attrs), nil
}

// ClientHeader renders the value of a Cookie request header
func ClientHeader(cookies []Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Pair())
	}
	return strings.Join(pairs, "; ")
}

// ServerHeader renders Set-Cookie header lines, mostly for debugging output
func ServerHeader(cookies []Cookie) string {
	lines := make([]string, 0, len(cookies))
	for _, c := range cookies {
		lines = append(lines, "Set-Cookie: "+c.String())
	}
	return strings.Join(lines, "\r\n")
}
