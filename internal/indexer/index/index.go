// Package index holds the reverse index: a lowercase noun mapped to the
// ordinals of the publications it occurs in.
package index

import (
	"fmt"
	"sort"
)

// ReverseIndex maps a lowercase word to publication ordinals in insertion
// order. An ordinal may repeat when the word occurs more than once in the
// same publication. It is not modified after the build finishes.
type ReverseIndex map[string][]int

// Add appends ordinal to word's posting list. When dedup is set the ordinal
// is dropped if it is already the last entry; the builder adds ordinals in
// increasing order, so that is enough to keep one entry per publication.
func (idx ReverseIndex) Add(word string, ordinal int, dedup bool) {
	postings := idx[word]
	if dedup && len(postings) > 0 && postings[len(postings)-1] == ordinal {
		return
	}
	idx[word] = append(postings, ordinal)
}

// Lookup returns the posting list for an already-lowercased word, or nil.
func (idx ReverseIndex) Lookup(word string) []int {
	return idx[word]
}

// Words returns the indexed words in sorted order.
func (idx ReverseIndex) Words() []string {
	words := make([]string, 0, len(idx))
	for w := range idx {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Stats summarises an index for logs, metrics and the health check.
type Stats struct {
	Terms       int    `json:"terms"`
	Postings    int    `json:"postings"`
	LongestTerm string `json:"longest_posting_term,omitempty"`
	Longest     int    `json:"longest_posting_len"`
}

func (idx ReverseIndex) Stats() Stats {
	s := Stats{Terms: len(idx)}
	for _, w := range idx.Words() {
		n := len(idx[w])
		s.Postings += n
		if n > s.Longest {
			s.Longest = n
			s.LongestTerm = w
		}
	}
	return s
}

// CheckOrdinals verifies every posting refers to one of pubCount
// publications. A loaded index that fails this was built from another corpus.
func (idx ReverseIndex) CheckOrdinals(pubCount int) error {
	for _, w := range idx.Words() {
		for _, ord := range idx[w] {
			if ord < 0 || ord >= pubCount {
				return fmt.Errorf("word %q: ordinal %d out of range [0,%d)", w, ord, pubCount)
			}
		}
	}
	return nil
}
