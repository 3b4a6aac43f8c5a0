package process

import (
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/queue"
)

// LinkPolicy controls which extracted links are queued and how
type LinkPolicy struct {
	RespectNofollow bool // Skip anchors carrying rel=nofollow
	FollowRefresh   bool // Treat meta refresh as a redirect instead of a plain link
}

// LinkProcessor handles queueing the links found on a page into the frontier
type LinkProcessor struct {
	frontier *queue.Frontier
	log      *logrus.Entry
}

// NewLinkProcessor creates a LinkProcessor
func NewLinkProcessor(frontier *queue.Frontier, log *logrus.Entry) *LinkProcessor {
	return &LinkProcessor{frontier: frontier, log: log}
}

// QueueHTMLLinks pushes the links of an HTML page with page as referrer
// Anchors go to the back of their domain queue and page resources to the front
// Returns how many URLs were new and, when policy.FollowRefresh is set, the meta refresh target
func (lp *LinkProcessor) QueueHTMLLinks(res HTMLResult, page parse.URL, child queue.PendingFetch, policy LinkPolicy) (queued int, refresh *parse.URL) {
	taskLog := lp.log.WithField("url", page.Full())

	for _, link := range res.Links {
		if policy.RespectNofollow && link.IsAnchor() && link.Nofollow() {
			taskLog.Debugf("Skipping nofollow link: %s", link.URL.Full())
			continue
		}
		if policy.FollowRefresh && link.IsRefresh() {
			target := link.URL
			refresh = &target
			continue
		}
		if lp.frontier.Push(link.URL, page, child, !link.IsAnchor()) {
			queued++
		}
	}

	taskLog.Debugf("Queued %d new links from HTML", queued)
	return queued, refresh
}

// QueueCSSLinks pushes the references of a stylesheet to the front of their domain queue
func (lp *LinkProcessor) QueueCSSLinks(res CSSResult, page parse.URL, child queue.PendingFetch) (queued int) {
	for _, u := range res.Links {
		if lp.frontier.Push(u, page, child, true) {
			queued++
		}
	}
	lp.log.WithField("url", page.Full()).Debugf("Queued %d new links from CSS", queued)
	return queued
}
