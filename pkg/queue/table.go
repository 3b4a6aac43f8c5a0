package queue

import (
	"strings"

	"github.com/Sriram-PR/webtest/pkg/parse"
)

type tableEntry[V any] struct {
	url   parse.URL
	value V
}

// urlTable maps canonical URLs to values, bucketing by HashKey and resolving collisions with URL.Equal
// Iteration follows insertion order
type urlTable[V any] struct {
	buckets map[string][]*tableEntry[V]
	order   []*tableEntry[V]
}

func newURLTable[V any]() *urlTable[V] {
	return &urlTable[V]{buckets: make(map[string][]*tableEntry[V])}
}

func (t *urlTable[V]) find(u parse.URL) *tableEntry[V] {
	for _, e := range t.buckets[u.HashKey()] {
		if e.url.Equal(u) {
			return e
		}
	}
	return nil
}

func (t *urlTable[V]) get(u parse.URL) (V, bool) {
	if e := t.find(u); e != nil {
		return e.value, true
	}
	var zero V
	return zero, false
}

func (t *urlTable[V]) has(u parse.URL) bool {
	return t.find(u) != nil
}

// set stores value for u and reports whether u was already present
func (t *urlTable[V]) set(u parse.URL, value V) bool {
	if e := t.find(u); e != nil {
		e.value = value
		return true
	}
	e := &tableEntry[V]{url: u, value: value}
	key := u.HashKey()
	t.buckets[key] = append(t.buckets[key], e)
	t.order = append(t.order, e)
	return false
}

func (t *urlTable[V]) keys() []parse.URL {
	out := make([]parse.URL, 0, len(t.order))
	for _, e := range t.order {
		out = append(out, e.url)
	}
	return out
}

func (t *urlTable[V]) entries() []*tableEntry[V] {
	return t.order
}

func (t *urlTable[V]) len() int {
	return len(t.order)
}

func (t *urlTable[V]) clear() {
	t.buckets = make(map[string][]*tableEntry[V])
	t.order = nil
}

// roadSet is an insertion ordered set of roads
type roadSet struct {
	seen  map[string]bool
	roads []Road
}

func newRoadSet() *roadSet {
	return &roadSet{seen: make(map[string]bool)}
}

func (s *roadSet) add(r Road) {
	key := r.key()
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.roads = append(s.roads, r)
}

func (r Road) key() string {
	parts := make([]string, len(r))
	for i, u := range r {
		parts[i] = u.HashKey() + "#" + u.Fragment()
	}
	return strings.Join(parts, "\n")
}
