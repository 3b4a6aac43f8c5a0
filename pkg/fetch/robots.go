package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

type robotsEntry struct {
	data *robotstxt.RobotsData
	err  error
}

// RobotsHandler manages fetching, parsing, caching, and checking robots.txt data
// Entries are cached per encoded address, failures included
type RobotsHandler struct {
	fetcher     *Fetcher
	rateLimiter *RateLimiter
	userAgent   string
	cache       map[string]robotsEntry
	cacheMu     sync.Mutex
	log         *logrus.Entry
}

// NewRobotsHandler creates a RobotsHandler
func NewRobotsHandler(fetcher *Fetcher, rateLimiter *RateLimiter, userAgent string, log *logrus.Entry) *RobotsHandler {
	return &RobotsHandler{
		fetcher:     fetcher,
		rateLimiter: rateLimiter,
		userAgent:   userAgent,
		cache:       make(map[string]robotsEntry),
		log:         log,
	}
}

// GetRobotsData retrieves robots.txt data for the domain of u, using cache or fetching
// A 4xx answer allows everything and a 5xx answer disallows everything
// Returns an error when the file could not be fetched or parsed
func (rh *RobotsHandler) GetRobotsData(ctx context.Context, u parse.URL) (*robotstxt.RobotsData, error) {
	address := u.AddressEncoded()

	rh.cacheMu.Lock()
	entry, found := rh.cache[address]
	rh.cacheMu.Unlock()
	if found {
		return entry.data, entry.err
	}

	data, err := rh.fetch(ctx, u)

	rh.cacheMu.Lock()
	rh.cache[address] = robotsEntry{data: data, err: err}
	rh.cacheMu.Unlock()
	return data, err
}

func (rh *RobotsHandler) fetch(ctx context.Context, u parse.URL) (*robotstxt.RobotsData, error) {
	robotsURL := u.AddressEncoded() + "/robots.txt"
	robotsLog := rh.log.WithField("robots_url", robotsURL)
	robotsLog.Debug("Fetching robots.txt...")

	if rh.rateLimiter != nil {
		rh.rateLimiter.ApplyDelay(ctx, u.HostnameEncoded(), 0)
		defer rh.rateLimiter.UpdateLastRequestTime(u.HostnameEncoded())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", rh.userAgent)

	resp, err := rh.fetcher.FetchWithRetry(ctx, req)
	if err != nil {
		robotsLog.Warnf("Fetching robots.txt failed: %v", err)
		return nil, err
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		robotsLog.Warnf("Error parsing robots.txt: %v", err)
		return nil, fmt.Errorf("%w: robots.txt: %w", utils.ErrParsing, err)
	}
	robotsLog.WithField("status_code", resp.StatusCode).Debug("Parsed robots.txt")
	return data, nil
}

// TestAgent checks if the user agent may fetch u
// Returns true when robots data could not be obtained
func (rh *RobotsHandler) TestAgent(ctx context.Context, u parse.URL, userAgent string) bool {
	data, err := rh.GetRobotsData(ctx, u)
	if err != nil || data == nil {
		return true
	}
	return data.TestAgent(u.RequestURI(), userAgent)
}

// Sitemaps returns the sitemap URLs announced by the domain's robots.txt
func (rh *RobotsHandler) Sitemaps(ctx context.Context, u parse.URL) []string {
	data, err := rh.GetRobotsData(ctx, u)
	if err != nil || data == nil {
		return nil
	}
	return append([]string(nil), data.Sitemaps...)
}
