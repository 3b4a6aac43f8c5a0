package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/webtest/pkg/cookie"
	"github.com/Sriram-PR/webtest/pkg/parse"
)

var (
	pageA = parse.MustParse("http://a.test/a")
	pageB = parse.MustParse("http://a.test/b")
	pageC = parse.MustParse("http://a.test/c")
	root  = parse.MustParse("http://a.test/")
	other = parse.MustParse("http://b.test/x")
)

func fullURLs(urls []parse.URL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.Full()
	}
	return out
}

func popPaths(f *Frontier) []string {
	var out []string
	for {
		task, ok := f.PopURL()
		if !ok {
			return out
		}
		out = append(out, task.URL.Full())
	}
}

func TestFrontier_PushFirstDiscoveryOnly(t *testing.T) {
	f := NewFrontier()

	assert.True(t, f.Push(pageA, root, PendingFetch{}, false))
	assert.False(t, f.Push(pageA, pageB, PendingFetch{}, false))
	assert.False(t, f.Push(parse.MustParse("http://a.test:80/a"), pageC, PendingFetch{}, false), "same canonical URL")

	assert.Equal(t, 1, f.Size())
	assert.Equal(t, []string{root.Full(), pageB.Full(), pageC.Full()}, fullURLs(f.References(pageA)))
	assert.Empty(t, f.References(pageB))
}

func TestFrontier_StagingAndDomains(t *testing.T) {
	f := NewFrontier()

	f.Push(pageA, pageA, PendingFetch{}, false)
	f.Push(other, other, PendingFetch{}, false)
	f.Push(pageB, pageA, PendingFetch{}, false)

	assert.True(t, f.EmptyDomain(), "nothing is active before a domain is selected")
	assert.False(t, f.Empty())
	assert.Equal(t, 3, f.Size())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, f.StagedDomains())

	addr, ok := f.PopDomain("")
	require.True(t, ok)
	assert.Equal(t, "http://a.test", addr)
	assert.Equal(t, 2, f.SizeDomain())
	assert.Equal(t, 3, f.Size())

	// Same-domain pushes now go straight to the active queue
	f.Push(pageC, pageA, PendingFetch{}, true)
	assert.Equal(t, 3, f.SizeDomain())
	assert.Equal(t, []string{pageC.Full(), pageA.Full(), pageB.Full()}, popPaths(f))

	addr, ok = f.PopDomain("")
	require.True(t, ok)
	assert.Equal(t, "http://b.test", addr)
	assert.Equal(t, []string{other.Full()}, popPaths(f))

	addr, ok = f.PopDomain("")
	assert.False(t, ok)
	assert.Equal(t, "", addr)
	assert.True(t, f.Empty())
}

func TestFrontier_PopURLCarriesTask(t *testing.T) {
	f := NewFrontier()
	jar := cookie.NewJar(cookie.New("sid", "1", cookie.Attributes{Domain: "a.test"}))

	f.Push(pageA, root, PendingFetch{Cookies: jar, Charset: "utf-8", Extra: 42}, false)
	f.PopDomain("")

	task, ok := f.PopURL()
	require.True(t, ok)
	assert.True(t, task.URL.Equal(pageA))
	assert.True(t, task.Referrer.Equal(root))
	assert.Same(t, jar, task.Cookies)
	assert.Equal(t, "utf-8", task.Charset)
	assert.Equal(t, 42, task.Extra)

	_, ok = f.PopURL()
	assert.False(t, ok)
}

func TestFrontier_PushRedirectMovesLinks(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)
	f.PopDomain("")
	_, _ = f.PopURL()

	queued, err := f.PushRedirect(pageB, pageA, PendingFetch{}, true)
	require.NoError(t, err)
	assert.True(t, queued)

	task, ok := f.PopURL()
	require.True(t, ok)
	assert.True(t, task.URL.Equal(pageB))
	assert.True(t, task.Referrer.Equal(pageA))

	assert.Equal(t, []string{root.Full()}, fullURLs(f.References(pageB)))
	assert.Empty(t, f.References(pageA), "links to the redirecting page are moved")

	roads := f.Roads(pageB, root)
	require.Len(t, roads, 1)
	assert.Equal(t, []string{pageA.Full()}, fullURLs(roads[0]))

	target, ok := f.RedirectTarget(pageA)
	require.True(t, ok)
	assert.True(t, target.Equal(pageB))

	// A later link to the redirecting page resolves to its target
	assert.False(t, f.Push(pageA, pageC, PendingFetch{}, false))
	assert.Equal(t, []string{root.Full(), pageC.Full()}, fullURLs(f.References(pageB)))
	roads = f.Roads(pageB, pageC)
	require.Len(t, roads, 1)
	assert.Equal(t, []string{pageA.Full()}, fullURLs(roads[0]))
}

func TestFrontier_PushRedirectChainResolution(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)

	_, err := f.PushRedirect(pageB, pageA, PendingFetch{}, false)
	require.NoError(t, err)
	_, err = f.PushRedirect(pageC, pageB, PendingFetch{}, false)
	require.NoError(t, err)

	roads := f.Roads(pageC, root)
	require.Len(t, roads, 1)
	assert.Equal(t, []string{pageA.Full(), pageB.Full()}, fullURLs(roads[0]))

	f.Push(pageA, other, PendingFetch{}, false)
	roads = f.Roads(pageC, other)
	require.Len(t, roads, 1)
	assert.Equal(t, []string{pageA.Full(), pageB.Full()}, fullURLs(roads[0]))
}

func TestFrontier_PushRedirectKnownTarget(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)
	f.Push(pageB, root, PendingFetch{}, false)

	queued, err := f.PushRedirect(pageB, pageA, PendingFetch{}, false)
	require.NoError(t, err)
	assert.False(t, queued, "target already discovered")
	assert.Equal(t, 2, f.Size())
}

func TestFrontier_InfiniteRedirection(t *testing.T) {
	t.Run("SelfRedirect", func(t *testing.T) {
		f := NewFrontier()
		_, err := f.PushRedirect(pageA, pageA, PendingFetch{}, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInfiniteRedirection))
	})

	t.Run("TwoPageLoop", func(t *testing.T) {
		f := NewFrontier()
		f.Push(pageA, root, PendingFetch{}, false)
		_, err := f.PushRedirect(pageB, pageA, PendingFetch{}, false)
		require.NoError(t, err)

		_, err = f.PushRedirect(pageA, pageB, PendingFetch{}, false)
		require.Error(t, err)

		var loop *RedirectLoopError
		require.True(t, errors.As(err, &loop))
		assert.Equal(t, []string{pageB.Full(), pageA.Full()}, fullURLs(loop.Chain))

		_, recorded := f.RedirectTarget(pageB)
		assert.False(t, recorded, "a rejected redirect is not recorded")
	})

	t.Run("ThreePageLoop", func(t *testing.T) {
		f := NewFrontier()
		f.Push(pageA, root, PendingFetch{}, false)
		_, err := f.PushRedirect(pageB, pageA, PendingFetch{}, false)
		require.NoError(t, err)
		_, err = f.PushRedirect(pageC, pageB, PendingFetch{}, false)
		require.NoError(t, err)

		_, err = f.PushRedirect(pageA, pageC, PendingFetch{}, false)
		var loop *RedirectLoopError
		require.True(t, errors.As(err, &loop))
		assert.Equal(t, []string{pageC.Full(), pageA.Full(), pageB.Full()}, fullURLs(loop.Chain))
		assert.Contains(t, err.Error(), "infinite url redirection")
	})
}

func TestFrontier_ChangeDomainConservesTasks(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)
	f.Push(pageB, root, PendingFetch{}, false)
	f.Push(other, root, PendingFetch{}, false)
	f.PopDomain("")
	require.Equal(t, "http://a.test", f.Address())

	f.ChangeDomain("")
	assert.Equal(t, "http://b.test", f.Address())
	assert.Equal(t, 1, f.SizeDomain())
	assert.Equal(t, 3, f.Size())
	assert.Equal(t, []string{"http://a.test"}, f.StagedDomains())

	staged := f.Staged("http://a.test")
	require.Len(t, staged, 2)
	assert.True(t, staged[0].URL.Equal(pageA))
	assert.True(t, staged[1].URL.Equal(pageB))
}

func TestFrontier_ChangeDomainExplicitAddress(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)
	f.Push(other, root, PendingFetch{}, false)

	f.ChangeDomain("http://b.test")
	assert.Equal(t, "http://b.test", f.Address())
	assert.Equal(t, []string{other.Full()}, popPaths(f))

	// Activating an address with nothing staged leaves an empty active queue
	f.ChangeDomain("http://c.test")
	assert.Equal(t, "http://c.test", f.Address())
	assert.True(t, f.EmptyDomain())
	assert.Equal(t, 1, f.Size())
}

func TestFrontier_ChangeDomainNothingStaged(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)
	f.Push(pageB, root, PendingFetch{}, false)
	f.PopDomain("")

	f.ChangeDomain("")
	assert.Equal(t, "http://a.test", f.Address(), "the active domain stays when nothing else is staged")
	assert.Equal(t, []string{pageA.Full(), pageB.Full()}, popPaths(f))
}

func TestFrontier_PopDomainDiscardsActive(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)
	f.Push(pageB, root, PendingFetch{}, false)
	f.Push(other, root, PendingFetch{}, false)
	f.PopDomain("")

	addr, ok := f.PopDomain("")
	require.True(t, ok)
	assert.Equal(t, "http://b.test", addr)
	assert.Equal(t, 1, f.Size(), "remaining tasks of the previous domain are dropped")
}

func TestFrontier_Clear(t *testing.T) {
	f := NewFrontier()
	f.Push(pageA, root, PendingFetch{}, false)
	f.Push(other, root, PendingFetch{}, false)
	f.PopDomain("")

	f.Clear()
	assert.True(t, f.Empty())
	assert.Equal(t, 0, f.Size())
	assert.Equal(t, "", f.Address())
	assert.Equal(t, []string{root.Full()}, fullURLs(f.References(pageA)), "the link graph survives Clear")
}
