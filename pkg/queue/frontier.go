package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sriram-PR/webtest/pkg/cookie"
	"github.com/Sriram-PR/webtest/pkg/parse"
)

var ErrInfiniteRedirection = errors.New("infinite url redirection")

// PendingFetch is one queued fetch; the frontier never looks at Cookies, Charset or Extra
type PendingFetch struct {
	URL      parse.URL
	Referrer parse.URL
	Cookies  *cookie.Jar // Snapshot of the cookies received on the way to URL
	Charset  string      // Charset hint inherited from the referring document
	Extra    any
}

// Road is the chain of redirecting pages crossed to reach a URL from a referrer
type Road []parse.URL

// RedirectLoopError reports a redirect that would close a cycle
// Chain starts with the redirecting page and ends with the page that redirects back to it
type RedirectLoopError struct {
	Chain []parse.URL
}

func (e *RedirectLoopError) Error() string {
	hops := make([]string, len(e.Chain))
	for i, u := range e.Chain {
		hops[i] = u.Full()
	}
	return fmt.Sprintf("%s: %s", ErrInfiniteRedirection, strings.Join(hops, " -> "))
}

func (e *RedirectLoopError) Unwrap() error {
	return ErrInfiniteRedirection
}

// Frontier is the crawl queue: one active domain served from a deque, every other domain staged
// It records the redirects between pages and which pages reference which, over which roads
// A Frontier is not safe for concurrent use
type Frontier struct {
	active  deque
	address string // encoded address of the active domain, "" when none

	staged      map[string][]PendingFetch
	stagedOrder []string
	stagedCount int

	redirects *urlTable[parse.URL]           // page -> URL it redirected to
	linked    *urlTable[*urlTable[*roadSet]] // URL -> referrer -> roads
}

// NewFrontier returns an empty frontier with no active domain
func NewFrontier() *Frontier {
	return &Frontier{
		active:    newDeque(),
		staged:    make(map[string][]PendingFetch),
		redirects: newURLTable[parse.URL](),
		linked:    newURLTable[*urlTable[*roadSet]](),
	}
}

// Push records that referrer links to u and queues u on first discovery
// u is first resolved through known redirects; the crossed pages become the road of the link
// task is stored with URL set to the resolved URL and Referrer to referrer
// Returns true when the resolved URL was queued
func (f *Frontier) Push(u, referrer parse.URL, task PendingFetch, front bool) bool {
	resolved, road := f.resolve(u)

	referrers, known := f.linked.get(resolved)
	if !known {
		referrers = newURLTable[*roadSet]()
		f.linked.set(resolved, referrers)
	}
	roads, ok := referrers.get(referrer)
	if !ok {
		roads = newRoadSet()
		referrers.set(referrer, roads)
	}
	roads.add(road)

	if known {
		return false
	}
	task.URL = resolved
	task.Referrer = referrer
	f.forcePush(task, front)
	return true
}

// resolve follows the redirect map from u; a visited set bounds the walk
func (f *Frontier) resolve(u parse.URL) (parse.URL, Road) {
	road := Road{}
	visited := newURLTable[struct{}]()
	for {
		next, ok := f.redirects.get(u)
		if !ok || visited.set(u, struct{}{}) {
			return u, road
		}
		road = append(road, u)
		u = next
	}
}

// PushRedirect records that page redirects to target
// Every link to page is moved to target with page appended to its roads, and target is queued on first discovery
// Returns a *RedirectLoopError when target is page or already leads back to it
func (f *Frontier) PushRedirect(target, page parse.URL, task PendingFetch, front bool) (bool, error) {
	if target.Equal(page) {
		return false, &RedirectLoopError{Chain: []parse.URL{page, target}}
	}

	chain := []parse.URL{page, target}
	visited := newURLTable[struct{}]()
	visited.set(target, struct{}{})
	for hop := target; ; {
		next, ok := f.redirects.get(hop)
		if !ok {
			break
		}
		if next.Equal(page) {
			return false, &RedirectLoopError{Chain: chain}
		}
		if visited.set(next, struct{}{}) {
			break
		}
		chain = append(chain, next)
		hop = next
	}

	f.redirects.set(page, target)

	referrers, known := f.linked.get(target)
	if !known {
		referrers = newURLTable[*roadSet]()
		f.linked.set(target, referrers)
	}
	if pageReferrers, ok := f.linked.get(page); ok {
		for _, e := range pageReferrers.entries() {
			roads, ok := referrers.get(e.url)
			if !ok {
				roads = newRoadSet()
				referrers.set(e.url, roads)
			}
			for _, r := range e.value.roads {
				extended := append(append(Road{}, r...), page)
				roads.add(extended)
			}
		}
		pageReferrers.clear()
	}

	if known {
		return false, nil
	}
	task.URL = target
	task.Referrer = page
	f.forcePush(task, front)
	return true, nil
}

// forcePush queues task without touching the link graph
func (f *Frontier) forcePush(task PendingFetch, front bool) {
	addr := task.URL.AddressEncoded()
	if f.address != "" && addr == f.address {
		if front {
			f.active.pushFront(task)
		} else {
			f.active.pushBack(task)
		}
		return
	}

	if _, ok := f.staged[addr]; !ok {
		f.stagedOrder = append(f.stagedOrder, addr)
	}
	f.staged[addr] = append(f.staged[addr], task)
	f.stagedCount++
}

// PopURL removes the next task of the active domain
func (f *Frontier) PopURL() (PendingFetch, bool) {
	return f.active.popFront()
}

// ChangeDomain activates address, or the domain staged first when address is empty
// The previous active queue is re-queued after the new domain's staged tasks, so nothing is lost
func (f *Frontier) ChangeDomain(address string) {
	previous := f.active.drain()

	var tasks []PendingFetch
	switch {
	case address != "":
		tasks = f.takeStaged(address)
		f.address = address
	case len(f.stagedOrder) > 0:
		next := f.stagedOrder[0]
		tasks = f.takeStaged(next)
		f.address = next
	}

	for _, task := range tasks {
		f.forcePush(task, false)
	}
	for _, task := range previous {
		f.forcePush(task, false)
	}
}

func (f *Frontier) takeStaged(address string) []PendingFetch {
	tasks, ok := f.staged[address]
	if !ok {
		return nil
	}
	delete(f.staged, address)
	f.stagedCount -= len(tasks)
	for i, a := range f.stagedOrder {
		if a == address {
			f.stagedOrder = append(f.stagedOrder[:i], f.stagedOrder[i+1:]...)
			break
		}
	}
	return tasks
}

// PopDomain discards what is left of the active domain and activates the next one
// Returns the new active address, or false when nothing is left to crawl
func (f *Frontier) PopDomain(address string) (string, bool) {
	f.ClearDomain()
	if !f.Empty() {
		f.ChangeDomain(address)
	}
	return f.address, f.address != ""
}

// ClearDomain discards the active queue and deactivates its domain
func (f *Frontier) ClearDomain() {
	f.active.clear()
	f.address = ""
}

// Clear discards every queued task; the link graph and redirects are kept
func (f *Frontier) Clear() {
	f.staged = make(map[string][]PendingFetch)
	f.stagedOrder = nil
	f.stagedCount = 0
	f.ClearDomain()
}

// References returns the pages linking to u, in discovery order
func (f *Frontier) References(u parse.URL) []parse.URL {
	referrers, ok := f.linked.get(u)
	if !ok {
		return nil
	}
	return referrers.keys()
}

// Roads returns the redirect chains through which referrer reaches u
func (f *Frontier) Roads(u, referrer parse.URL) []Road {
	referrers, ok := f.linked.get(u)
	if !ok {
		return nil
	}
	roads, ok := referrers.get(referrer)
	if !ok {
		return nil
	}
	out := make([]Road, len(roads.roads))
	for i, r := range roads.roads {
		out[i] = append(Road{}, r...)
	}
	return out
}

// RedirectTarget returns where page was recorded to redirect
func (f *Frontier) RedirectTarget(page parse.URL) (parse.URL, bool) {
	return f.redirects.get(page)
}

// Address is the encoded address of the active domain
func (f *Frontier) Address() string { return f.address }

func (f *Frontier) EmptyDomain() bool { return f.active.len() == 0 }
func (f *Frontier) Empty() bool       { return f.EmptyDomain() && f.stagedCount == 0 }
func (f *Frontier) SizeDomain() int   { return f.active.len() }
func (f *Frontier) Size() int         { return f.active.len() + f.stagedCount }

// StagedDomains lists staged addresses in the order they will be activated
func (f *Frontier) StagedDomains() []string {
	return append([]string(nil), f.stagedOrder...)
}

// Staged returns a copy of the tasks staged for address
func (f *Frontier) Staged(address string) []PendingFetch {
	return append([]PendingFetch(nil), f.staged[address]...)
}
