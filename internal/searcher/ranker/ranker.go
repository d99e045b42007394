// Package ranker orders publications by how many query keywords they match.
//
// There is no relevance weighting: a publication's score is its match count.
// Publications are grouped by count, highest first; within a group they keep
// the order in which they were first encountered while walking the keywords
// in query order and each posting list in index order.
package ranker

import (
	"fmt"
	"slices"

	"github.com/sandeepstha184/IR-assignment123/internal/indexer/index"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/parser"
)

// CountMode selects how matches are counted.
type CountMode string

const (
	// CountOccurrences adds one for every posting entry of every keyword
	// token, so repeated keywords and repeated postings both count.
	CountOccurrences CountMode = "occurrences"
	// CountDistinct counts each publication at most once per distinct
	// lowercase keyword.
	CountDistinct CountMode = "distinct"
)

// ParseCountMode maps a config value to a CountMode. Empty means
// CountOccurrences.
func ParseCountMode(s string) (CountMode, error) {
	switch CountMode(s) {
	case "", CountOccurrences:
		return CountOccurrences, nil
	case CountDistinct:
		return CountDistinct, nil
	default:
		return "", fmt.Errorf("unknown count mode %q", s)
	}
}

// Match is a ranked publication ordinal with its match count.
type Match struct {
	Ordinal int `json:"ordinal"`
	Count   int `json:"count"`
}

// Process parses query and ranks the matching ordinals. It returns the
// keywords as typed and the ranked ordinals; both are empty, non-nil slices
// for a blank query.
func Process(idx index.ReverseIndex, query string, mode CountMode) ([]string, []int) {
	q := parser.Parse(query)
	matches := Rank(idx, q, mode)
	ordinals := make([]int, len(matches))
	for i, m := range matches {
		ordinals[i] = m.Ordinal
	}
	return q.Keywords, ordinals
}

// Rank scores every publication reachable from q's terms. Terms missing
// from the index are skipped.
func Rank(idx index.ReverseIndex, q *parser.Query, mode CountMode) []Match {
	counts := make(map[int]int)
	discovered := make([]int, 0)
	hit := func(ord int) {
		if _, seen := counts[ord]; !seen {
			discovered = append(discovered, ord)
		}
		counts[ord]++
	}

	switch mode {
	case CountDistinct:
		for _, term := range q.DistinctTerms() {
			seen := make(map[int]struct{})
			for _, ord := range idx.Lookup(term) {
				if _, dup := seen[ord]; dup {
					continue
				}
				seen[ord] = struct{}{}
				hit(ord)
			}
		}
	default:
		for _, term := range q.Terms {
			for _, ord := range idx.Lookup(term) {
				hit(ord)
			}
		}
	}

	matches := make([]Match, len(discovered))
	for i, ord := range discovered {
		matches[i] = Match{Ordinal: ord, Count: counts[ord]}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return b.Count - a.Count
	})
	return matches
}
