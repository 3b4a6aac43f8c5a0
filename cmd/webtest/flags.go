package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sriram-PR/webtest/pkg/config"
)

// stringList is a flag that can be given several times
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ", ") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// crawlFlags holds the crawl command line; values only override the config file when given
type crawlFlags struct {
	configFile string
	logLevel   string
	resetState bool

	userAgent    string
	headers      stringList
	cookies      stringList
	fixedCookies stringList
	include      stringList
	includeFiles stringList
	exclude      stringList
	excludeFiles stringList

	noRobots        bool
	noRedirect      bool
	noCookies       bool
	noCSS           bool
	respectNofollow bool
	useSitemaps     bool
	color           bool

	validHTML bool
	validCSS  bool
	validJS   bool
	resultDir string

	timeout     float64
	maxAttempts int
	delay       time.Duration
	stateDir    string

	reportYAML     string
	reportMarkdown string
	reportHTML     string
	visitedLog     string
}

func newCrawlFlagSet(name string) (*flag.FlagSet, *crawlFlags) {
	f := &crawlFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&f.configFile, "config", "", "Path to YAML config file (optional)")
	fs.StringVar(&f.logLevel, "loglevel", "warn", "Log level (debug, info, warn, error, fatal)")
	fs.BoolVar(&f.resetState, "reset-state", false, "Discard the page store of a previous run")

	fs.StringVar(&f.userAgent, "user-agent", "", "User agent reported to websites, also matched against robots.txt")
	fs.Var(&f.headers, "header", "Header to send, NAME=VALUE (repeatable)")
	fs.Var(&f.cookies, "cookie", "Cookie to start with, replaced by websites (repeatable)")
	fs.Var(&f.fixedCookies, "fixed-cookie", "Cookie sent with every matching request (repeatable)")
	fs.Var(&f.include, "include", "Regex of pages to find links on (repeatable)")
	fs.Var(&f.includeFiles, "include-file", "File of include regexes, one per line (repeatable)")
	fs.Var(&f.exclude, "exclude", "Regex of pages NOT to find links on (repeatable)")
	fs.Var(&f.excludeFiles, "exclude-file", "File of exclude regexes, one per line (repeatable)")

	fs.BoolVar(&f.noRobots, "no-robots", false, "Ignore robots.txt rules (NOT RECOMMENDED)")
	fs.BoolVar(&f.noRedirect, "no-redirect", false, "Ignore redirections")
	fs.BoolVar(&f.noCookies, "no-cookies", false, "Ignore cookies sent by websites")
	fs.BoolVar(&f.noCSS, "no-css", false, "Do not extract links from CSS files")
	fs.BoolVar(&f.respectNofollow, "nofollow", false, "Skip anchors marked rel=nofollow")
	fs.BoolVar(&f.useSitemaps, "sitemaps", false, "Queue the pages of sitemaps listed in robots.txt")
	fs.BoolVar(&f.color, "color", false, "Enable terminal colors")

	fs.BoolVar(&f.validHTML, "valid-html", false, "Validate HTML online with the W3C Nu checker")
	fs.BoolVar(&f.validCSS, "valid-css", false, "Validate CSS online with the W3C CSS validator")
	fs.BoolVar(&f.validJS, "valid-js", false, "Validate JavaScript online with the Closure Compiler service")
	fs.StringVar(&f.resultDir, "valid-result-dir", "", "Directory for validation results (default validation_<time>UTC)")

	fs.Float64Var(&f.timeout, "timeout", 0, "Timeout in seconds for HTTP requests (default 5)")
	fs.IntVar(&f.maxAttempts, "max-attempts", 0, "Attempts per request on network errors (default 3)")
	fs.DurationVar(&f.delay, "delay", 0, "Minimum delay between two requests to one host")
	fs.StringVar(&f.stateDir, "state-dir", "", "Directory of the page store (in memory when empty)")

	fs.StringVar(&f.reportYAML, "report-yaml", "", "Write the crawl report as YAML to this file")
	fs.StringVar(&f.reportMarkdown, "report-md", "", "Write the crawl report as Markdown to this file")
	fs.StringVar(&f.reportHTML, "report-html", "", "Write the crawl report as HTML to this file")
	fs.StringVar(&f.visitedLog, "visited-log", "", "Write every recorded URL to this file")

	return fs, f
}

// apply copies the flags given on the command line over cfg
func (f *crawlFlags) apply(fs *flag.FlagSet, cfg *config.AppConfig) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "user-agent":
			cfg.UserAgent = f.userAgent
		case "header":
			if cfg.Headers == nil {
				cfg.Headers = make(map[string]string)
			}
			for _, h := range f.headers {
				name, value, ok := strings.Cut(h, "=")
				if !ok {
					err = fmt.Errorf("header '%s' must be NAME=VALUE", h)
					return
				}
				cfg.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
			}
		case "cookie":
			cfg.Cookies = append(cfg.Cookies, f.cookies...)
		case "fixed-cookie":
			cfg.FixedCookies = append(cfg.FixedCookies, f.fixedCookies...)
		case "include":
			cfg.IncludeRules = append(cfg.IncludeRules, f.include...)
		case "include-file":
			cfg.IncludeRuleFiles = append(cfg.IncludeRuleFiles, f.includeFiles...)
		case "exclude":
			cfg.ExcludeRules = append(cfg.ExcludeRules, f.exclude...)
		case "exclude-file":
			cfg.ExcludeRuleFiles = append(cfg.ExcludeRuleFiles, f.excludeFiles...)
		case "no-robots":
			cfg.NoRobots = f.noRobots
		case "no-redirect":
			cfg.NoRedirect = f.noRedirect
		case "no-cookies":
			cfg.NoCookies = f.noCookies
		case "no-css":
			cfg.NoCSS = f.noCSS
		case "nofollow":
			cfg.RespectNofollow = f.respectNofollow
		case "sitemaps":
			cfg.UseSitemaps = f.useSitemaps
		case "color":
			cfg.Color = f.color
		case "valid-html":
			cfg.Validators.HTML = f.validHTML
		case "valid-css":
			cfg.Validators.CSS = f.validCSS
		case "valid-js":
			cfg.Validators.JS = f.validJS
		case "valid-result-dir":
			cfg.Validators.ResultDir = f.resultDir
		case "timeout":
			cfg.HTTPClient.Timeout = time.Duration(f.timeout * float64(time.Second))
		case "max-attempts":
			cfg.MaxAttempts = f.maxAttempts
		case "delay":
			cfg.DelayPerHost = f.delay
		case "state-dir":
			cfg.StateDir = f.stateDir
		case "report-yaml":
			cfg.Report.YAMLFile = f.reportYAML
		case "report-md":
			cfg.Report.MarkdownFile = f.reportMarkdown
		case "report-html":
			cfg.Report.HTMLFile = f.reportHTML
		case "visited-log":
			cfg.Report.VisitedFile = f.visitedLog
		}
	})
	cfg.StartURLs = append(cfg.StartURLs, fs.Args()...)
	return err
}

// expandArgFiles replaces every @FILE argument by the lines of FILE, blank lines skipped
func expandArgFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") || len(arg) == 1 {
			out = append(out, arg)
			continue
		}
		file, err := os.Open(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("reading arguments file: %w", err)
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				out = append(out, line)
			}
		}
		err = scanner.Err()
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("reading arguments file '%s': %w", arg[1:], err)
		}
	}
	return out, nil
}
