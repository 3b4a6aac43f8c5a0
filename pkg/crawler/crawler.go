package crawler

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/config"
	"github.com/Sriram-PR/webtest/pkg/cookie"
	"github.com/Sriram-PR/webtest/pkg/fetch"
	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/process"
	"github.com/Sriram-PR/webtest/pkg/queue"
	"github.com/Sriram-PR/webtest/pkg/report"
	"github.com/Sriram-PR/webtest/pkg/sitemap"
	"github.com/Sriram-PR/webtest/pkg/storage"
	"github.com/Sriram-PR/webtest/pkg/utils"
	"github.com/Sriram-PR/webtest/pkg/validate"
)

// Options carries the collaborators a Crawler can be given instead of building its own
type Options struct {
	Out    io.Writer         // Progress and summary output, os.Stdout when nil
	Store  storage.PageStore // Page store, in memory when nil
	Client *http.Client      // HTTP client, built from the config when nil
	Pool   *validate.Pool    // Validation workers, built from the config when nil
	Clock  func() time.Time  // Time source for records and the report, time.Now when nil
}

// rules holds the compiled include and exclude rules of one scope
type rules struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// Crawler visits every URL reachable from the start URLs, one domain at a time
// It is sequential; only the validation workers run in the background
type Crawler struct {
	cfg *config.AppConfig
	log *logrus.Entry
	now func() time.Time

	frontier    *queue.Frontier
	fetcher     *fetch.Fetcher
	robots      *fetch.RobotsHandler
	rateLimiter *fetch.RateLimiter
	sitemaps    *sitemap.Loader
	links       *process.LinkProcessor
	pool        *validate.Pool
	store       storage.PageStore
	issues      *report.Issues
	printer     *report.Printer

	starts    []parse.URL
	startJar  *cookie.Jar // Cookies given for the start URLs, replaced by what websites send
	fixedJar  *cookie.Jar // Cookies sent with every matching request
	headers   http.Header
	global    rules
	siteRules map[string]rules // By encoded address

	fetched     int
	interrupted atomic.Bool
}

// NewCrawler prepares a crawl of cfg.StartURLs and every site's start URLs
// cfg must have been validated
func NewCrawler(cfg *config.AppConfig, opts Options, logger *logrus.Entry) (*Crawler, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	client := opts.Client
	if client == nil {
		client = fetch.NewClient(cfg.HTTPClient, logger)
	}
	store := opts.Store
	if store == nil {
		store = storage.NewMemoryStore(logger)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	fetcher := fetch.NewFetcher(client, cfg, logger.WithField("component", "fetcher"))
	rateLimiter := fetch.NewRateLimiter(cfg.DelayPerHost, logger.WithField("component", "rate_limiter"))
	frontier := queue.NewFrontier()

	pool := opts.Pool
	if pool == nil {
		pool = validate.NewPoolFromConfig(cfg, fetcher, logger.WithField("component", "validator"))
	}

	c := &Crawler{
		cfg:         cfg,
		log:         logger,
		now:         now,
		frontier:    frontier,
		fetcher:     fetcher,
		robots:      fetch.NewRobotsHandler(fetcher, rateLimiter, cfg.UserAgent, logger.WithField("component", "robots")),
		rateLimiter: rateLimiter,
		sitemaps:    sitemap.NewLoader(fetcher, rateLimiter, cfg.UserAgent, logger),
		links:       process.NewLinkProcessor(frontier, logger.WithField("component", "links")),
		pool:        pool,
		store:       store,
		issues:      report.NewIssues(),
		printer:     report.NewPrinter(out, cfg.Color),
		startJar:    cookie.NewJar(),
		fixedJar:    cookie.NewJar(),
		headers:     make(http.Header, len(cfg.Headers)),
		siteRules:   make(map[string]rules),
	}
	for name, value := range cfg.Headers {
		c.headers.Set(name, value)
	}

	if err := c.seed(); err != nil {
		return nil, err
	}
	return c, nil
}

// seed parses the start URLs, compiles the rules, fills the cookie jars and queues the start URLs
func (c *Crawler) seed() error {
	type start struct {
		url  parse.URL
		site config.SiteConfig
	}
	var starts []start
	seen := make(map[string]bool)
	add := func(raw string) error {
		u, err := parse.Parse(raw, parse.DefaultOptions())
		if err != nil {
			return fmt.Errorf("%w: start url: %w", utils.ErrConfigValidation, err)
		}
		if seen[u.HashKey()] {
			c.log.WithField("url", u.Full()).Warn("Duplicate start URL. Skipping.")
			return nil
		}
		seen[u.HashKey()] = true
		starts = append(starts, start{url: u, site: c.cfg.SiteFor(u.AddressEncoded())})
		return nil
	}
	for _, raw := range c.cfg.StartURLs {
		if err := add(raw); err != nil {
			return err
		}
	}
	for _, address := range slices.Sorted(maps.Keys(c.cfg.Sites)) {
		for _, raw := range c.cfg.Sites[address].StartURLs {
			if err := add(raw); err != nil {
				return err
			}
		}
	}
	if len(starts) == 0 {
		return fmt.Errorf("%w: no start urls given", utils.ErrConfigValidation)
	}
	for _, s := range starts {
		c.starts = append(c.starts, s.url)
	}

	var err error
	if c.global, err = c.compileRules(c.cfg.IncludeRules, c.cfg.IncludeRuleFiles, c.cfg.ExcludeRules, c.cfg.ExcludeRuleFiles, c.starts); err != nil {
		return err
	}

	// A Cookie header becomes start cookies so websites can replace them
	var headerCookies []string
	if value := c.headers.Get("Cookie"); value != "" {
		for _, part := range strings.Split(value, ";") {
			if part = strings.TrimSpace(part); part != "" {
				headerCookies = append(headerCookies, part)
			}
		}
		c.headers.Del("Cookie")
	}

	for _, s := range starts {
		lines := append(append(append([]string{}, headerCookies...), c.cfg.Cookies...), s.site.Cookies...)
		if err := c.startJar.Set(s.url, lines...); err != nil {
			c.log.WithField("url", s.url.Full()).Warnf("Some start cookies were not stored: %v", err)
		}
		if err := c.fixedJar.Set(s.url, c.cfg.FixedCookies...); err != nil {
			c.log.WithField("url", s.url.Full()).Warnf("Some fixed cookies were not stored: %v", err)
		}

		address := s.url.AddressEncoded()
		if _, done := c.siteRules[address]; !done && (len(s.site.IncludeRules) > 0 || len(s.site.ExcludeRules) > 0) {
			var siteStarts []parse.URL
			for _, other := range starts {
				if other.url.AddressEncoded() == address {
					siteStarts = append(siteStarts, other.url)
				}
			}
			r, err := c.compileRules(s.site.IncludeRules, nil, s.site.ExcludeRules, nil, siteStarts)
			if err != nil {
				return fmt.Errorf("site '%s': %w", address, err)
			}
			c.siteRules[address] = r
		}
	}

	for _, s := range starts {
		c.frontier.Push(s.url, s.url, queue.PendingFetch{Cookies: c.startJar, Charset: process.DefaultCharset}, false)
	}
	c.log.Infof("Queued %d start URLs", len(starts))
	return nil
}

func (c *Crawler) compileRules(include, includeFiles, exclude, excludeFiles []string, starts []parse.URL) (rules, error) {
	var r rules
	collect := func(list, files []string) ([]*regexp.Regexp, error) {
		all := append([]string{}, list...)
		for _, path := range files {
			fromFile, err := utils.ReadRules(path)
			if err != nil {
				return nil, err
			}
			all = append(all, fromFile...)
		}
		return utils.CompileRules(all, starts)
	}
	var err error
	if r.include, err = collect(include, includeFiles); err != nil {
		return r, err
	}
	if r.exclude, err = collect(exclude, excludeFiles); err != nil {
		return r, err
	}
	return r, nil
}

// included reports whether the body of u is parsed for links
func (c *Crawler) included(u parse.URL) bool {
	full := u.Full()
	site, hasSite := c.siteRules[u.AddressEncoded()]
	if !utils.MatchAny(c.global.include, full) && !(hasSite && utils.MatchAny(site.include, full)) {
		return false
	}
	if utils.MatchAny(c.global.exclude, full) || (hasSite && utils.MatchAny(site.exclude, full)) {
		return false
	}
	return true
}

// Interrupt stops the crawl after the request in flight; results gathered so far are still reported
func (c *Crawler) Interrupt() {
	if c.interrupted.CompareAndSwap(false, true) {
		c.log.Warn("Crawl interrupted, finishing current request...")
	}
}

func (c *Crawler) stopped(ctx context.Context) bool {
	return c.interrupted.Load() || ctx.Err() != nil
}

// Frontier exposes the crawl queue and its link graph
func (c *Crawler) Frontier() *queue.Frontier {
	return c.frontier
}

// Issues exposes the errors and warnings collected so far
func (c *Crawler) Issues() *report.Issues {
	return c.issues
}

// Run crawls until the frontier is empty or the crawl is stopped, then reports
// Cancelling ctx also aborts the validation workers; Interrupt lets them finish
func (c *Crawler) Run(ctx context.Context) (*models.CrawlReport, error) {
	startTime := c.now()
	runLog := c.log.WithField("start_urls", len(c.starts))
	runLog.Info("Crawl starting...")

	c.pool.Start(ctx)

	for !c.stopped(ctx) {
		address, ok := c.frontier.PopDomain("")
		if !ok {
			break
		}
		c.crawlDomain(ctx, address)
	}

	interrupted := c.stopped(ctx)
	rep, err := c.finish(ctx, startTime, interrupted)
	runLog.WithFields(logrus.Fields{
		"pages_fetched": c.fetched,
		"issues":        c.issues.Len(),
		"duration":      c.now().Sub(startTime).String(),
	}).Info("Crawl finished")
	return rep, err
}

// crawlDomain empties the active domain queue
func (c *Crawler) crawlDomain(ctx context.Context, address string) {
	domainLog := c.log.WithField("domain", address)
	task, ok := c.frontier.PopURL()
	if !ok {
		return
	}
	site := c.cfg.SiteFor(address)
	userAgent := config.GetEffectiveUserAgent(site, *c.cfg)

	checkRobots := !config.GetEffectiveNoRobots(site, *c.cfg)
	if checkRobots {
		if _, err := c.robots.GetRobotsData(ctx, task.URL); err != nil {
			c.printer.Error("Could not fetch robots.txt at %s", task.URL.Full())
			checkRobots = false
		}
	}

	if config.GetEffectiveUseSitemaps(site, *c.cfg) {
		c.seedSitemaps(ctx, task.URL)
	}

	if err := fetch.CheckReachable(ctx, task.URL, c.cfg.HTTPClient.DialerTimeout); err != nil {
		domainLog.Warnf("Domain unreachable: %v", err)
		for ; ok; task, ok = c.frontier.PopURL() {
			c.issues.AddError(task.URL, "Could not connect to http server")
			c.record(task, nil, "", "", err)
		}
		return
	}

	domainLog.Debugf("Crawling domain, %d queued", c.frontier.SizeDomain()+1)
	for ; ok; task, ok = c.frontier.PopURL() {
		if checkRobots && !c.robots.TestAgent(ctx, task.URL, userAgent) {
			c.printer.Warning("Robot not allowed at %s", task.URL.Full())
			rec := &models.PageRecord{
				Status:      models.PageStatusSkipped,
				Referrer:    task.Referrer.Full(),
				ErrorType:   utils.CategorizeError(utils.ErrRobotsDisallowed),
				LastAttempt: c.now(),
			}
			if err := c.store.RecordPage(task.URL.Full(), rec); err != nil {
				domainLog.WithField("url", task.URL.Full()).Errorf("Failed to record page: %v", err)
			}
			continue
		}
		c.processPage(ctx, task, site, userAgent)
		if c.stopped(ctx) {
			return
		}
	}
}

// seedSitemaps pushes the pages listed by the sitemaps that robots.txt announces for u's domain
func (c *Crawler) seedSitemaps(ctx context.Context, u parse.URL) {
	var list []parse.URL
	for _, raw := range c.robots.Sitemaps(ctx, u) {
		sm, err := parse.Parse(raw, parse.DefaultOptions())
		if err != nil {
			c.log.WithField("sitemap", raw).Debugf("Ignoring sitemap: %v", err)
			continue
		}
		list = append(list, sm)
	}
	if len(list) == 0 {
		return
	}

	queued := 0
	for _, entry := range c.sitemaps.Load(ctx, list) {
		if c.frontier.Push(entry.URL, entry.Sitemap, queue.PendingFetch{Cookies: c.startJar, Charset: process.DefaultCharset}, false) {
			queued++
		}
	}
	c.log.WithField("domain", u.AddressEncoded()).Infof("Queued %d URLs from %d sitemaps", queued, len(list))
}
