package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/config"
	"github.com/Sriram-PR/webtest/pkg/cookie"
	"github.com/Sriram-PR/webtest/pkg/fetch"
	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/process"
	"github.com/Sriram-PR/webtest/pkg/queue"
	"github.com/Sriram-PR/webtest/pkg/utils"
	"github.com/Sriram-PR/webtest/pkg/validate"
)

// processPage fetches one URL, reports its status and queues what it links or redirects to
func (c *Crawler) processPage(ctx context.Context, task queue.PendingFetch, site config.SiteConfig, userAgent string) {
	u := task.URL
	taskLog := c.log.WithFields(logrus.Fields{"url": u.Full(), "referrer": task.Referrer.Full()})

	task.Cookies.ClearExpired()
	c.fixedJar.ClearExpired()

	header := c.headers.Clone()
	header.Set("User-Agent", userAgent)
	if sent := c.fixedJar.Union(task.Cookies).MatchURL(u); len(sent) > 0 {
		header.Set("Cookie", cookie.ClientHeader(sent))
	}
	if !task.Referrer.Equal(u) && header.Get("Referer") == "" {
		header.Set("Referer", task.Referrer.Encoded())
	}

	resp, err := c.fetchPage(ctx, u, header, config.GetEffectiveDelayPerHost(site, *c.cfg))
	if resp == nil {
		if err == nil {
			err = errors.New("empty response")
		}
		taskLog.Warnf("Fetch failed: %v", err)
		c.issues.AddError(u, fmt.Sprintf("Could not fetch data from server: %v", err))
		c.record(task, nil, "", "", err)
		return
	}
	// Recorded with the page; a bad status takes precedence
	pageErr := err
	if err != nil {
		taskLog.Warnf("Response body could not be decoded: %v", err)
		c.issues.AddError(u, fmt.Sprintf("Could not decode response: %v", err))
	}
	c.fetched++

	jar := task.Cookies
	if setCookies := resp.Header.Values("Set-Cookie"); !c.cfg.NoCookies && len(setCookies) > 0 {
		jar = jar.Copy()
		if err := jar.Set(u, setCookies...); err != nil {
			taskLog.Debugf("Some cookies were rejected: %v", err)
		}
	}
	child := queue.PendingFetch{Cookies: jar, Charset: task.Charset}

	var redirect *parse.URL
	mediaType := ""
	if location := resp.Header.Get("Location"); !c.cfg.NoRedirect && location != "" {
		target, err := u.Hyperlink(location)
		if err != nil {
			taskLog.Warnf("Unusable redirect location %q: %v", location, err)
			c.issues.AddError(u, fmt.Sprintf("Invalid redirect location: %s", location))
		} else {
			redirect = &target
		}
	} else {
		c.printer.Status(u.Full(), resp.StatusCode, resp.Reason())
		if statusErr := statusError(resp.StatusCode, resp.Reason()); statusErr != nil {
			pageErr = statusErr
		}
		switch {
		case resp.StatusCode >= 400:
			c.issues.AddWarning(u, fmt.Sprintf("%d %s", resp.StatusCode, resp.Reason()))
		case resp.StatusCode >= 300:
			c.issues.AddWarning(u, fmt.Sprintf("%d %s (no redirect location given)", resp.StatusCode, resp.Reason()))
		}

		if c.included(u) {
			mediaType, redirect = c.processContent(u, resp, &child, site)
		} else {
			taskLog.Debug("Not parsed, outside include rules")
		}
	}

	redirectTo := ""
	if redirect != nil {
		redirectTo = redirect.Full()
		if _, err := c.frontier.PushRedirect(*redirect, u, child, true); err != nil {
			c.printer.Error("Redirection loop detected!")
			c.printer.Error("%s --> ... --> %s --> ... --> %s", u.Full(), redirect.Full(), u.Full())
			c.issues.AddError(u, err.Error())
			pageErr = fmt.Errorf("%w: %w", utils.ErrRedirectLoop, err)
		} else {
			c.printer.Notice("%s --> %s", u.Full(), redirect.Full())
		}
	}

	c.record(task, resp, mediaType, redirectTo, pageErr)
}

// statusError classifies a status that is not a success, nil otherwise
func statusError(code int, reason string) error {
	switch {
	case code >= 500:
		return fmt.Errorf("HTTP status %d %s: %w", code, reason, utils.ErrServerHTTPError)
	case code >= 400:
		return fmt.Errorf("HTTP status %d %s: %w", code, reason, utils.ErrClientHTTPError)
	case code < 200 || code >= 300:
		return fmt.Errorf("HTTP status %d %s: %w", code, reason, utils.ErrOtherHTTPError)
	}
	return nil
}

// processContent decodes an HTML, CSS or JavaScript body, queues its links and hands it to the validators
// child.Charset is updated to the charset the body was read with
// Returns the media type and the meta refresh target when refresh is followed as a redirect
func (c *Crawler) processContent(u parse.URL, resp *fetch.Response, child *queue.PendingFetch, site config.SiteConfig) (string, *parse.URL) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = fetch.DefaultContentType
	}
	mediaType, params := fetch.ParseContentType(contentType)
	declared := params["charset"]
	inherited := child.Charset

	switch {
	case fetch.IsHTML(mediaType):
		res, err := process.ScanHTML(resp.Body, u, declared, inherited)
		if err != nil {
			c.issues.AddError(u, err.Error())
			return mediaType, nil
		}
		child.Charset = res.Charset

		if c.pool.Enabled(validate.KindHTML) {
			if body, err := fetch.GzipContent(resp.Body); err == nil {
				c.pool.Submit(validate.KindHTML, validate.Job{URL: u, Body: body, Header: http.Header{
					"Content-Type":     {contentType},
					"Content-Encoding": {"gzip"},
				}})
			}
		}

		policy := process.LinkPolicy{
			RespectNofollow: config.GetEffectiveRespectNofollow(site, *c.cfg),
			FollowRefresh:   !c.cfg.NoRedirect,
		}
		_, refresh := c.links.QueueHTMLLinks(res, u, *child, policy)
		return mediaType, refresh

	case fetch.IsCSS(mediaType):
		if !c.cfg.NoCSS {
			res := process.ScanCSS(resp.Body, u, declared, inherited)
			child.Charset = res.Charset
			c.links.QueueCSSLinks(res, u, *child)
		}
		if c.pool.Enabled(validate.KindCSS) {
			c.pool.Submit(validate.KindCSS, validate.Job{URL: u})
		}

	case fetch.IsJavaScript(mediaType):
		if c.pool.Enabled(validate.KindJS) {
			text, name := process.DecodeBody(resp.Body, declared, inherited)
			child.Charset = name
			c.pool.Submit(validate.KindJS, validate.Job{URL: u, Body: []byte(text)})
		}
	}
	return mediaType, nil
}

// fetchPage GETs u in its encoded request form, retrying with the unencoded form when that one fails
func (c *Crawler) fetchPage(ctx context.Context, u parse.URL, header http.Header, delay time.Duration) (*fetch.Response, error) {
	resp, err := c.get(ctx, u, header, true, delay)
	if (resp == nil || resp.StatusCode >= 400) && u.Request() != u.RequestEncoded() {
		if alt, altErr := c.get(ctx, u, header, false, delay); alt != nil && altErr == nil && alt.StatusCode < 400 {
			return alt, nil
		}
	}
	return resp, err
}

func (c *Crawler) get(ctx context.Context, u parse.URL, header http.Header, encoded bool, delay time.Duration) (*fetch.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.AddressEncoded()+u.RequestEncoded(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	if !encoded {
		// Sent verbatim on the request line
		req.URL.Opaque = u.Request()
		req.URL.RawQuery = ""
	}
	req.Header = header.Clone()

	host := u.HostnameEncoded()
	c.rateLimiter.ApplyDelay(ctx, host, delay)
	defer c.rateLimiter.UpdateLastRequestTime(host)
	return c.fetcher.FetchWithRetry(ctx, req)
}

// record stores the outcome of a task in the page store
func (c *Crawler) record(task queue.PendingFetch, resp *fetch.Response, mediaType, redirectTo string, taskErr error) {
	u := task.URL
	rec := &models.PageRecord{
		Status:      models.PageStatusFailure,
		ContentType: mediaType,
		Referrer:    task.Referrer.Full(),
		RedirectTo:  redirectTo,
		Errors:      len(c.issues.Errors(u)),
		Warnings:    len(c.issues.Warnings(u)),
		LastAttempt: c.now(),
	}
	if resp != nil {
		rec.StatusCode = resp.StatusCode
		rec.Status = models.StatusForCode(resp.StatusCode)
		if redirectTo != "" {
			rec.Status = models.PageStatusRedirected
		}
		rec.ContentHash = utils.ContentDigest(resp.Body)
	}
	if taskErr != nil {
		rec.ErrorType = utils.CategorizeError(taskErr)
	}
	if err := c.store.RecordPage(u.Full(), rec); err != nil {
		c.log.WithField("url", u.Full()).Errorf("Failed to record page: %v", err)
	}
}
