package parse

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidScheme = errors.New("invalid url scheme")
	ErrNotAbsolute   = errors.New("url is not absolute")
)

// Options controls how Parse canonicalizes its input
type Options struct {
	ForceSSL      bool // Rewrite the scheme to https (only with ForceAbsolute)
	UseFragment   bool // Keep the #fragment
	UseQuery      bool // Keep the ?query
	ForceAbsolute bool // Require a hostname, prefixing a default scheme when missing
}

// DefaultOptions is used for start URLs and anything typed by a user
func DefaultOptions() Options {
	return Options{UseQuery: true, ForceAbsolute: true}
}

// HyperlinkOptions is used when resolving links found in documents
func HyperlinkOptions() Options {
	return Options{UseQuery: true}
}

// URL is an immutable canonical URL with display and transport renderings of every part
// The zero value is an empty relative URL
type URL struct {
	scheme string

	username, usernameEncoded string
	password, passwordEncoded string
	hostname, hostnameEncoded string
	port                      string
	netloc, netlocEncoded     string
	address, addressEncoded   string

	path, pathEncoded     string
	parent, parentEncoded string
	file, fileEncoded     string
	segments              []string

	query, queryEncoded string
	queryParams         Query

	fragment, fragmentEncoded string
}

// Parse canonicalizes raw according to opts
func Parse(raw string, opts Options) (URL, error) {
	raw = escapeLonePercent(strings.TrimSpace(raw))

	u, err := url.Parse(raw)
	if opts.ForceAbsolute && (err != nil || u.Host == "") && !hasRealScheme(raw) {
		u, err = url.Parse(defaultScheme(opts) + "://" + raw)
	}
	if err != nil {
		return URL{}, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}

	scheme := u.Scheme
	if scheme != "" && scheme != "http" && scheme != "https" {
		return URL{}, fmt.Errorf("%w: %q", ErrInvalidScheme, scheme)
	}
	if u.Host == "" && (opts.ForceAbsolute || scheme != "") {
		return URL{}, fmt.Errorf("%w: %q: missing hostname", ErrInvalidURL, raw)
	}
	if scheme == "" && u.Host != "" && opts.ForceAbsolute {
		scheme = defaultScheme(opts)
	}
	if opts.ForceSSL && opts.ForceAbsolute {
		scheme = "https"
	}

	return build(u, scheme, opts)
}

// MustParse is Parse with DefaultOptions that panics on error, for literals in tests and defaults
func MustParse(raw string) URL {
	u, err := Parse(raw, DefaultOptions())
	if err != nil {
		panic(err)
	}
	return u
}

func defaultScheme(opts Options) string {
	if opts.ForceSSL {
		return "https"
	}
	return "http"
}

func build(u *url.URL, scheme string, opts Options) (URL, error) {
	var out URL
	out.scheme = scheme

	if u.User != nil {
		out.username = u.User.Username()
		out.usernameEncoded = url.QueryEscape(out.username)
		out.password, _ = u.User.Password()
		out.passwordEncoded = url.QueryEscape(out.password)
	}

	out.hostname = strings.ToLower(u.Hostname())
	out.hostnameEncoded = EncodeHostname(out.hostname)

	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n > 65535 {
			return URL{}, fmt.Errorf("%w: invalid port %q", ErrInvalidURL, p)
		}
		out.port = stripDefaultPort(scheme, strconv.Itoa(n))
	}

	out.netloc = joinNetloc(u.User, out.hostname, out.port)
	out.netlocEncoded = joinNetloc(u.User, out.hostnameEncoded, out.port)
	if scheme != "" && out.hostname != "" {
		out.address = scheme + "://" + out.netloc
		out.addressEncoded = scheme + "://" + out.netlocEncoded
	}

	escaped := u.RawPath
	if escaped == "" {
		escaped = u.EscapedPath()
	}
	np := normalizePath(escaped, out.address != "")
	out.path, out.pathEncoded, out.segments = np.display, np.encoded, np.segments
	out.parent, out.file = splitParent(out.path)
	out.parentEncoded, out.fileEncoded = splitParent(out.pathEncoded)

	if opts.UseQuery {
		out.query = u.RawQuery
		out.queryParams = ParseQuery(u.RawQuery)
		out.queryEncoded = out.queryParams.Encode()
	}
	if opts.UseFragment {
		out.fragment = fragmentEscaper.Replace(u.Fragment)
		out.fragmentEncoded = u.EscapedFragment()
	}
	return out, nil
}

func joinNetloc(user *url.Userinfo, host, port string) string {
	if host == "" {
		return ""
	}
	var b strings.Builder
	if user != nil {
		b.WriteString(user.String())
		b.WriteByte('@')
	}
	if strings.Contains(host, ":") {
		b.WriteString("[" + host + "]")
	} else {
		b.WriteString(host)
	}
	if port != "" {
		b.WriteString(":" + port)
	}
	return b.String()
}

// ResolveHyperlink resolves link against the absolute base URL
func ResolveHyperlink(base URL, link string, opts Options) (URL, error) {
	if base.IsRelative() {
		return URL{}, fmt.Errorf("%w: %q", ErrNotAbsolute, base.Full())
	}
	link = escapeLonePercent(strings.TrimSpace(link))
	ref, err := url.Parse(link)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %q: %v", ErrInvalidURL, link, err)
	}

	switch {
	case ref.Scheme != "":
		return Parse(link, opts)

	case ref.Host != "":
		// Protocol-relative link keeps the base scheme
		authority := ref.Host
		if ref.User != nil {
			authority = ref.User.String() + "@" + authority
		}
		p := ref.EscapedPath()
		if p == "" {
			p = "/"
		}
		s := base.scheme + "://" + authority + p
		if ref.RawQuery != "" {
			s += "?" + ref.RawQuery
		}
		if ref.Fragment != "" {
			s += "#" + ref.EscapedFragment()
		}
		return Parse(s, opts)

	case strings.HasPrefix(ref.Path, "/"):
		return Parse(base.addressEncoded+link, opts)

	case ref.Path != "":
		return Parse(base.addressEncoded+base.parentEncoded+link, opts)

	default:
		return Parse(base.addressEncoded+base.pathEncoded+link, opts)
	}
}

// Hyperlink resolves link against u with HyperlinkOptions
func (u URL) Hyperlink(link string) (URL, error) {
	return ResolveHyperlink(u, link, HyperlinkOptions())
}

// Equal reports URL equality; a relative URL matches any address with the same path, query and fragment
func (u URL) Equal(other URL) bool {
	if u.IsAbsolute() && other.IsAbsolute() && u.addressEncoded != other.addressEncoded {
		return false
	}
	return u.pathEncoded == other.pathEncoded &&
		u.queryParams.Equal(other.queryParams) &&
		u.fragment == other.fragment
}

// HashKey identifies a URL for hashing; the fragment is not part of it
func (u URL) HashKey() string {
	return u.addressEncoded + u.pathEncoded + "?" + u.queryParams.canonical()
}

func (u URL) IsAbsolute() bool { return u.address != "" }
func (u URL) IsRelative() bool { return u.address == "" }
func (u URL) IsSSL() bool      { return u.scheme == "https" }

func (u URL) Scheme() string          { return u.scheme }
func (u URL) Username() string        { return u.username }
func (u URL) UsernameEncoded() string { return u.usernameEncoded }
func (u URL) Password() string        { return u.password }
func (u URL) PasswordEncoded() string { return u.passwordEncoded }
func (u URL) Hostname() string        { return u.hostname }
func (u URL) HostnameEncoded() string { return u.hostnameEncoded }
func (u URL) Port() string            { return u.port }
func (u URL) Netloc() string          { return u.netloc }
func (u URL) NetlocEncoded() string   { return u.netlocEncoded }
func (u URL) Address() string         { return u.address }
func (u URL) AddressEncoded() string  { return u.addressEncoded }
func (u URL) Path() string            { return u.path }
func (u URL) PathEncoded() string     { return u.pathEncoded }
func (u URL) Parent() string          { return u.parent }
func (u URL) ParentEncoded() string   { return u.parentEncoded }
func (u URL) File() string            { return u.file }
func (u URL) FileEncoded() string     { return u.fileEncoded }
func (u URL) RawQuery() string        { return u.query }
func (u URL) QueryEncoded() string    { return u.queryEncoded }
func (u URL) Query() Query            { return u.queryParams }
func (u URL) Fragment() string        { return u.fragment }
func (u URL) FragmentEncoded() string { return u.fragmentEncoded }

// Segments returns the decoded, non-empty path segments
func (u URL) Segments() []string {
	return append([]string(nil), u.segments...)
}

// HostPort returns the dial target, filling in the scheme's default port
func (u URL) HostPort() string {
	port := u.port
	if port == "" {
		port = defaultPorts[u.scheme]
	}
	host := u.hostnameEncoded
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port == "" {
		return host
	}
	return host + ":" + port
}

// Request is path, query and fragment in display form
func (u URL) Request() string {
	return joinRequest(u.path, u.query, u.fragment)
}

// RequestEncoded is path, query and fragment in transport form
func (u URL) RequestEncoded() string {
	return joinRequest(u.pathEncoded, u.queryEncoded, u.fragmentEncoded)
}

// RequestURI is the encoded request target sent on the wire (no fragment, never empty)
func (u URL) RequestURI() string {
	target := joinRequest(u.pathEncoded, u.queryEncoded, "")
	if target == "" {
		return "/"
	}
	return target
}

func joinRequest(p, q, f string) string {
	if q != "" {
		p += "?" + q
	}
	if f != "" {
		p += "#" + f
	}
	return p
}

// Full is the whole URL in display form
func (u URL) Full() string { return u.address + u.Request() }

// Encoded is the whole URL in transport form
func (u URL) Encoded() string { return u.addressEncoded + u.RequestEncoded() }

func (u URL) String() string { return u.Full() }

// Field returns a display field by name, as used in rule placeholders
func (u URL) Field(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "scheme":
		return u.scheme, true
	case "username":
		return u.username, true
	case "password":
		return u.password, true
	case "hostname":
		return u.hostname, true
	case "port":
		return u.port, true
	case "netloc":
		return u.netloc, true
	case "address":
		return u.address, true
	case "parent":
		return u.parent, true
	case "file":
		return u.file, true
	case "path":
		return u.path, true
	case "query":
		return u.query, true
	case "fragment":
		return u.fragment, true
	case "request":
		return u.Request(), true
	case "full":
		return u.Full(), true
	}
	return "", false
}
