package parse

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// QueryPair is one decoded key/value entry of a query string
type QueryPair struct {
	Key   string
	Value string
}

// Query is an ordered multimap of decoded query parameters
// Bracket keys are flattened so that "a[]=1&a[]=2" is stored as "a[0]" and "a[1]"
type Query struct {
	pairs []QueryPair
}

// ParseQuery decodes a raw query string; "&" and ";" both separate pairs and "+" decodes to a space
// Undecodable escapes are kept verbatim
func ParseQuery(raw string) Query {
	raw = strings.TrimPrefix(raw, "?")
	var q Query
	if raw == "" {
		return q
	}

	next := make(map[string]int) // next automatic index per bracket prefix
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' || r == ';' }) {
		key, value, _ := strings.Cut(part, "=")
		key = unescapeQuery(key)
		value = unescapeQuery(value)
		if key == "" && value == "" {
			continue
		}
		q.pairs = append(q.pairs, QueryPair{Key: flattenKey(key, next), Value: value})
	}
	return q
}

// flattenKey rewrites bracket keys into a canonical form, numbering empty brackets per parent
// Keys with unbalanced brackets are returned unchanged
func flattenKey(key string, next map[string]int) string {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return key
	}

	var b strings.Builder
	b.WriteString(key[:open])
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return key
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return key
		}
		index := rest[1:end]
		prefix := b.String()
		if index == "" {
			index = strconv.Itoa(next[prefix])
			next[prefix]++
		} else if n, err := strconv.Atoi(index); err == nil && n >= next[prefix] {
			next[prefix] = n + 1
		}
		b.WriteString("[" + index + "]")
		rest = rest[end+1:]
	}
	return b.String()
}

func unescapeQuery(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return strings.ReplaceAll(s, "+", " ")
	}
	return decoded
}

// Add appends a value for key
func (q *Query) Add(key, value string) {
	q.pairs = append(q.pairs, QueryPair{Key: key, Value: value})
}

// Get returns the first value stored for key
func (q Query) Get(key string) (string, bool) {
	for _, p := range q.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Values returns every value stored for key in insertion order
func (q Query) Values(key string) []string {
	var values []string
	for _, p := range q.pairs {
		if p.Key == key {
			values = append(values, p.Value)
		}
	}
	return values
}

// Keys returns the distinct keys in first-seen order
func (q Query) Keys() []string {
	seen := make(map[string]bool, len(q.pairs))
	var keys []string
	for _, p := range q.pairs {
		if !seen[p.Key] {
			seen[p.Key] = true
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Pairs returns a copy of the stored pairs
func (q Query) Pairs() []QueryPair {
	return append([]QueryPair(nil), q.pairs...)
}

func (q Query) Len() int {
	return len(q.pairs)
}

// Encode renders the query in transport form, preserving insertion order
func (q Query) Encode() string {
	return encodePairs(q.pairs)
}

// canonical renders the query with keys sorted; values of one key keep their order
func (q Query) canonical() string {
	sorted := append([]QueryPair(nil), q.pairs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return encodePairs(sorted)
}

// Equal ignores key order but not the order of values under one key
func (q Query) Equal(other Query) bool {
	if len(q.pairs) != len(other.pairs) {
		return false
	}
	return q.canonical() == other.canonical()
}

func encodePairs(pairs []QueryPair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
