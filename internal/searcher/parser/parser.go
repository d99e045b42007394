// Package parser turns a raw query string into the keywords the ranker
// looks up.
package parser

import "strings"

// Query is a parsed free-text query. Keywords keep the user's casing for
// display and highlighting; Terms are the lowercase forms used for lookup,
// index-aligned with Keywords.
type Query struct {
	Raw      string
	Keywords []string
	Terms    []string
}

// Parse splits query on runs of whitespace. A blank query yields empty,
// non-nil Keywords and Terms. There are no operators: every word is a
// keyword, including "AND", "OR" and "NOT".
func Parse(query string) *Query {
	words := strings.Fields(query)
	q := &Query{
		Raw:      query,
		Keywords: make([]string, 0, len(words)),
		Terms:    make([]string, 0, len(words)),
	}
	for _, w := range words {
		q.Keywords = append(q.Keywords, w)
		q.Terms = append(q.Terms, strings.ToLower(w))
	}
	return q
}

// Empty reports whether the query has no keywords.
func (q *Query) Empty() bool {
	return len(q.Keywords) == 0
}

// DistinctTerms returns Terms with repeats removed, first occurrence first.
func (q *Query) DistinctTerms() []string {
	seen := make(map[string]struct{}, len(q.Terms))
	out := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Normalized is the canonical form used for cache keys and analytics:
// the lowercase terms joined by single spaces.
func (q *Query) Normalized() string {
	return strings.Join(q.Terms, " ")
}
