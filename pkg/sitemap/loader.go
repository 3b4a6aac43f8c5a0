package sitemap

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/fetch"
	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

// DefaultMaxSitemaps bounds how many sitemap documents one Load call fetches
const DefaultMaxSitemaps = 50

var gzipMagic = []byte{0x1f, 0x8b}

// Entry is a page listed by a sitemap
type Entry struct {
	URL     parse.URL
	Sitemap parse.URL // Sitemap document listing URL
}

// Loader fetches sitemaps and follows sitemap indexes
type Loader struct {
	fetcher     *fetch.Fetcher
	rateLimiter *fetch.RateLimiter
	userAgent   string
	MaxSitemaps int
	seen        map[string]bool // Sitemaps already fetched, by hash key
	log         *logrus.Entry
}

// NewLoader creates a Loader
func NewLoader(fetcher *fetch.Fetcher, rateLimiter *fetch.RateLimiter, userAgent string, log *logrus.Entry) *Loader {
	return &Loader{
		fetcher:     fetcher,
		rateLimiter: rateLimiter,
		userAgent:   userAgent,
		MaxSitemaps: DefaultMaxSitemaps,
		seen:        make(map[string]bool),
		log:         log.WithField("component", "sitemap_loader"),
	}
}

// MarkSeen records that a sitemap was handled; it returns false if it already was
func (l *Loader) MarkSeen(u parse.URL) bool {
	key := u.HashKey()
	if l.seen[key] {
		return false
	}
	l.seen[key] = true
	return true
}

// Load fetches the given sitemaps, following indexes breadth first, and returns the pages they list
// Sitemaps fetched by an earlier call are skipped; failures are logged and do not stop the walk
func (l *Loader) Load(ctx context.Context, sitemaps []parse.URL) []Entry {
	var (
		entries []Entry
		pending []parse.URL
		fetched int
	)
	for _, u := range sitemaps {
		if l.MarkSeen(u) {
			pending = append(pending, u)
		}
	}

	for len(pending) > 0 && ctx.Err() == nil {
		if fetched >= l.MaxSitemaps {
			l.log.Warnf("Sitemap limit of %d reached, %d sitemaps left unread", l.MaxSitemaps, len(pending))
			break
		}
		current := pending[0]
		pending = pending[1:]
		fetched++

		smLog := l.log.WithField("sitemap_url", current.Full())
		sm, err := l.fetch(ctx, current)
		if err != nil {
			smLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Sitemap skipped: %v", err)
			continue
		}

		for _, nested := range sm.Sitemaps {
			if l.MarkSeen(nested) {
				pending = append(pending, nested)
			}
		}
		for _, page := range sm.Pages {
			entries = append(entries, Entry{URL: page, Sitemap: current})
		}
		smLog.Debugf("Sitemap lists %d pages and %d sitemaps (%d entries skipped)", len(sm.Pages), len(sm.Sitemaps), sm.Skipped)
	}
	return entries
}

func (l *Loader) fetch(ctx context.Context, u parse.URL) (parse.Sitemap, error) {
	if l.rateLimiter != nil {
		l.rateLimiter.ApplyDelay(ctx, u.HostnameEncoded(), 0)
		defer l.rateLimiter.UpdateLastRequestTime(u.HostnameEncoded())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Encoded(), nil)
	if err != nil {
		return parse.Sitemap{}, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.fetcher.FetchWithRetry(ctx, req)
	if err != nil {
		return parse.Sitemap{}, err
	}
	if resp.StatusCode >= 400 {
		return parse.Sitemap{}, fmt.Errorf("%w: sitemap answered %s", utils.ErrClientHTTPError, resp.Status)
	}

	body := resp.Body
	// .xml.gz files are served compressed without a Content-Encoding
	if bytes.HasPrefix(body, gzipMagic) {
		if body, err = fetch.DecodeContent("gzip", body); err != nil {
			return parse.Sitemap{}, err
		}
	}

	sm, err := parse.ParseSitemap(body)
	if err != nil {
		return sm, fmt.Errorf("%w: %w", utils.ErrParsing, err)
	}
	return sm, nil
}
