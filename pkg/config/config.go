package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	Version    = "0.1.0"
	ProjectURL = "https://github.com/Sriram-PR/webtest"
)

// DefaultUserAgent is reported to websites and matched against robots.txt groups
var DefaultUserAgent = fmt.Sprintf("Webtestbot/%s (+%s)", Version, ProjectURL)

// DefaultIncludeRule only parses pages served under a start URL's netloc
const DefaultIncludeRule = `^https?://[*netloc*].*$`

// SiteConfig holds overrides for a single start address
type SiteConfig struct {
	StartURLs       []string      `yaml:"start_urls"`
	UserAgent       string        `yaml:"user_agent,omitempty"`
	DelayPerHost    time.Duration `yaml:"delay_per_host,omitempty"`
	RespectNofollow *bool         `yaml:"respect_nofollow,omitempty"`
	NoRobots        *bool         `yaml:"no_robots,omitempty"`
	UseSitemaps     *bool         `yaml:"use_sitemaps,omitempty"`
	Cookies         []string      `yaml:"cookies,omitempty"`
	IncludeRules    []string      `yaml:"include_rules,omitempty"`
	ExcludeRules    []string      `yaml:"exclude_rules,omitempty"`
}

// ValidatorConfig selects the online validators and where their results go
type ValidatorConfig struct {
	HTML          bool          `yaml:"html,omitempty"`
	CSS           bool          `yaml:"css,omitempty"`
	JS            bool          `yaml:"js,omitempty"`
	ResultDir     string        `yaml:"result_dir,omitempty"`
	RequestDelay  time.Duration `yaml:"request_delay,omitempty"` // Fixed pause between two requests to one service
	QueueCapacity int           `yaml:"queue_capacity,omitempty"`
	HTMLEndpoint  string        `yaml:"html_endpoint,omitempty"`
	CSSEndpoint   string        `yaml:"css_endpoint,omitempty"`
	JSEndpoint    string        `yaml:"js_endpoint,omitempty"`
}

// ReportConfig names the files written after a crawl; empty disables a file
type ReportConfig struct {
	YAMLFile     string `yaml:"yaml_file,omitempty"`
	MarkdownFile string `yaml:"markdown_file,omitempty"`
	HTMLFile     string `yaml:"html_file,omitempty"`
	VisitedFile  string `yaml:"visited_file,omitempty"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	StartURLs         []string              `yaml:"start_urls,omitempty"`
	UserAgent         string                `yaml:"user_agent"`
	Headers           map[string]string     `yaml:"headers,omitempty"`
	Cookies           []string              `yaml:"cookies,omitempty"`       // Replaced by the cookies websites send
	FixedCookies      []string              `yaml:"fixed_cookies,omitempty"` // Sent with every matching request, never replaced
	IncludeRules      []string              `yaml:"include_rules,omitempty"`
	IncludeRuleFiles  []string              `yaml:"include_rule_files,omitempty"`
	ExcludeRules      []string              `yaml:"exclude_rules,omitempty"`
	ExcludeRuleFiles  []string              `yaml:"exclude_rule_files,omitempty"`
	NoRobots          bool                  `yaml:"no_robots,omitempty"`
	NoRedirect        bool                  `yaml:"no_redirect,omitempty"`
	NoCookies         bool                  `yaml:"no_cookies,omitempty"`
	NoCSS             bool                  `yaml:"no_css,omitempty"`
	RespectNofollow   bool                  `yaml:"respect_nofollow,omitempty"`
	UseSitemaps       bool                  `yaml:"use_sitemaps,omitempty"`
	Color             bool                  `yaml:"color,omitempty"`
	Validators        ValidatorConfig       `yaml:"validators,omitempty"`
	Report            ReportConfig          `yaml:"report,omitempty"`
	StateDir          string                `yaml:"state_dir,omitempty"` // Badger page store; empty keeps pages in memory
	MaxAttempts       int                   `yaml:"max_attempts,omitempty"`
	InitialRetryDelay time.Duration         `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay     time.Duration         `yaml:"max_retry_delay,omitempty"`
	DelayPerHost      time.Duration         `yaml:"delay_per_host,omitempty"`
	HTTPClient        HTTPClientConfig      `yaml:"http_client_settings,omitempty"`
	Sites             map[string]SiteConfig `yaml:"sites,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout             time.Duration `yaml:"timeout,omitempty"` // Overall request timeout
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	DialerTimeout       time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive     time.Duration `yaml:"dialer_keep_alive,omitempty"`
	InsecureSkipVerify  bool          `yaml:"insecure_skip_verify,omitempty"`
}

// Load reads a YAML configuration file; defaults are applied later by Validate
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file '%s': %w", path, err)
	}
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file '%s': %w", path, err)
	}
	return cfg, nil
}

// SiteFor returns the site overrides registered for an encoded address
func (c *AppConfig) SiteFor(address string) SiteConfig {
	if c.Sites == nil {
		return SiteConfig{}
	}
	return c.Sites[address]
}

// GetEffectiveUserAgent determines the user agent for a site
func GetEffectiveUserAgent(siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.UserAgent != "" {
		return siteCfg.UserAgent
	}
	if appCfg.UserAgent != "" {
		return appCfg.UserAgent
	}
	return DefaultUserAgent
}

// GetEffectiveDelayPerHost determines the politeness delay for a site
func GetEffectiveDelayPerHost(siteCfg SiteConfig, appCfg AppConfig) time.Duration {
	if siteCfg.DelayPerHost > 0 {
		return siteCfg.DelayPerHost
	}
	return appCfg.DelayPerHost
}

// GetEffectiveRespectNofollow determines whether rel=nofollow anchors are skipped
func GetEffectiveRespectNofollow(siteCfg SiteConfig, appCfg AppConfig) bool {
	if siteCfg.RespectNofollow != nil {
		return *siteCfg.RespectNofollow
	}
	return appCfg.RespectNofollow
}

// GetEffectiveNoRobots determines whether robots.txt is ignored for a site
func GetEffectiveNoRobots(siteCfg SiteConfig, appCfg AppConfig) bool {
	if siteCfg.NoRobots != nil {
		return *siteCfg.NoRobots
	}
	return appCfg.NoRobots
}

// GetEffectiveUseSitemaps determines whether robots.txt sitemaps seed the frontier
func GetEffectiveUseSitemaps(siteCfg SiteConfig, appCfg AppConfig) bool {
	if siteCfg.UseSitemaps != nil {
		return *siteCfg.UseSitemaps
	}
	return appCfg.UseSitemaps
}
