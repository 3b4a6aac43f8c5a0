package config

import (
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/Sriram-PR/webtest/pkg/utils"
)

// Header defaults sent unless configured otherwise
var defaultHeaders = map[string]string{
	"Accept-Encoding": "gzip, deflate",
	"Connection":      "keep-alive",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
}

const (
	DefaultHTMLEndpoint = "https://validator.w3.org/nu/"
	DefaultCSSEndpoint  = "https://jigsaw.w3.org/css-validator/validator"
	DefaultJSEndpoint   = "https://closure-compiler.appspot.com/compile"
)

// DefaultResultDir names the validation result directory after the crawl start time
func DefaultResultDir(start time.Time) string {
	return "validation_" + start.UTC().Format("20060102-150405.00000") + "UTC"
}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// Header names are canonicalized; User-Agent always follows UserAgent
	headers := make(map[string]string, len(c.Headers)+len(defaultHeaders)+1)
	for name, value := range c.Headers {
		canonical := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
		if canonical == "" {
			warnings = append(warnings, "ignoring header with empty name")
			continue
		}
		if canonical == "User-Agent" {
			warnings = append(warnings, "headers.User-Agent is ignored, use user_agent instead")
			continue
		}
		headers[canonical] = value
	}
	for name, value := range defaultHeaders {
		if _, ok := headers[name]; !ok {
			headers[name] = value
		}
	}
	headers["User-Agent"] = c.UserAgent
	c.Headers = headers

	if len(c.IncludeRules) == 0 && len(c.IncludeRuleFiles) == 0 {
		c.IncludeRules = []string{DefaultIncludeRule}
	}

	// MaxAttempts
	if c.MaxAttempts < 0 {
		warnings = append(warnings, "max_attempts cannot be negative, setting to 1")
		c.MaxAttempts = 1
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}

	if c.InitialRetryDelay <= 0 {
		c.InitialRetryDelay = 500 * time.Millisecond
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 10 * time.Second
	}
	if c.InitialRetryDelay > c.MaxRetryDelay {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, disabling delay")
		c.DelayPerHost = 0
	}

	c.validateHTTPClientSettings()
	warnings = append(warnings, c.validateValidators()...)

	if c.NoCSS && c.Validators.CSS {
		warnings = append(warnings, "no_css only disables link extraction, CSS files are still fetched for validation")
	}

	for address, site := range c.Sites {
		siteWarnings, err := site.Validate()
		if err != nil {
			return warnings, fmt.Errorf("site '%s': %w", address, err)
		}
		for _, w := range siteWarnings {
			warnings = append(warnings, fmt.Sprintf("site '%s': %s", address, w))
		}
		c.Sites[address] = site
	}

	if len(c.StartURLs) == 0 && len(c.Sites) == 0 {
		return warnings, fmt.Errorf("%w: no start urls given", utils.ErrConfigValidation)
	}

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClient
	if h.Timeout <= 0 {
		h.Timeout = 5 * time.Second
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = h.Timeout
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

func (c *AppConfig) validateValidators() (warnings []string) {
	v := &c.Validators
	if !v.HTML && !v.CSS && !v.JS {
		return nil
	}
	if v.ResultDir == "" {
		v.ResultDir = DefaultResultDir(time.Now())
	}
	v.ResultDir = utils.NormalizeFilepath(v.ResultDir)
	if v.RequestDelay <= 0 {
		v.RequestDelay = time.Second
	}
	if v.QueueCapacity < 0 {
		warnings = append(warnings, "validators.queue_capacity cannot be negative, using unbounded queue")
		v.QueueCapacity = 0
	}
	if v.HTMLEndpoint == "" {
		v.HTMLEndpoint = DefaultHTMLEndpoint
	}
	if v.CSSEndpoint == "" {
		v.CSSEndpoint = DefaultCSSEndpoint
	}
	if v.JSEndpoint == "" {
		v.JSEndpoint = DefaultJSEndpoint
	}
	return warnings
}

// Validate checks SiteConfig fields.
// Returns collected warnings and any fatal error.
func (c *SiteConfig) Validate() (warnings []string, err error) {
	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, using global delay")
		c.DelayPerHost = 0
	}
	for _, rule := range append(append([]string{}, c.IncludeRules...), c.ExcludeRules...) {
		if strings.TrimSpace(rule) == "" {
			return nil, fmt.Errorf("%w: empty rule", utils.ErrConfigValidation)
		}
	}
	return warnings, nil
}
