package process

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/queue"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// drain pops the active domain of f in order
func drain(f *queue.Frontier) []string {
	var out []string
	for {
		task, ok := f.PopURL()
		if !ok {
			return out
		}
		out = append(out, task.URL.Full())
	}
}

func TestQueueHTMLLinks(t *testing.T) {
	base := parse.MustParse("http://example.com/docs/index.html")
	res, err := ExtractHTML(samplePage, base, "")
	require.NoError(t, err)

	frontier := queue.NewFrontier()
	frontier.Push(base, parse.URL{}, queue.PendingFetch{}, false)
	frontier.ChangeDomain("")
	_, _ = frontier.PopURL()

	lp := NewLinkProcessor(frontier, testLogger())
	queued, refresh := lp.QueueHTMLLinks(res, base, queue.PendingFetch{Charset: res.Charset}, LinkPolicy{RespectNofollow: true, FollowRefresh: true})

	require.NotNil(t, refresh)
	assert.Equal(t, "http://example.com/next", refresh.Full())
	assert.Equal(t, 4, queued, "page, logo, stylesheet and background are new; the self link and nofollow are not")

	assert.Equal(t, []string{
		"http://example.com/docs/bg.png",
		"http://example.com/docs/img/logo.png",
		"http://example.com/style.css",
		"http://example.com/docs/page.html",
	}, drain(frontier))

	assert.Equal(t, []parse.URL{base}, frontier.References(parse.MustParse("http://example.com/docs/page.html")))
}

func TestQueueHTMLLinks_RefreshAsLink(t *testing.T) {
	base := parse.MustParse("http://example.com/docs/index.html")
	res, err := ExtractHTML(samplePage, base, "")
	require.NoError(t, err)

	frontier := queue.NewFrontier()
	lp := NewLinkProcessor(frontier, testLogger())
	queued, refresh := lp.QueueHTMLLinks(res, base, queue.PendingFetch{}, LinkPolicy{})

	assert.Nil(t, refresh)
	assert.Equal(t, 7, queued, "every distinct link is queued, the nofollow one and the refresh target included")
	assert.Equal(t, []string{"http://example.com"}, frontier.StagedDomains())
}

func TestQueueCSSLinks(t *testing.T) {
	base := parse.MustParse("http://example.com/css/site.css")
	res := ExtractCSS(`@import "reset.css"; body { background: url(http://cdn.example.org/bg.png) }`, base, "")

	frontier := queue.NewFrontier()
	lp := NewLinkProcessor(frontier, testLogger())
	queued := lp.QueueCSSLinks(res, base, queue.PendingFetch{})

	assert.Equal(t, 2, queued)
	assert.Equal(t, []string{"http://example.com", "http://cdn.example.org"}, frontier.StagedDomains())
}
