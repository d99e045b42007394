// Package tagger splits text into word tokens and assigns each a
// part-of-speech tag in the Penn Treebank tag set (NN, NNS, NNP, VB, ...).
//
// Two implementations are provided. ProseTagger runs the averaged perceptron
// model from github.com/jdkato/prose. LexiconTagger needs no model: it tags
// closed-class English words (determiners, prepositions, pronouns, ...) with
// their Treebank tag and everything else alphanumeric as NN, which is a fair
// approximation for publication titles and surnames.
package tagger

import (
	"fmt"
	"strings"
	"unicode"
)

// Token is a single word as it appeared in the input, plus its tag.
type Token struct {
	Text string
	Tag  string
}

// Tagger tokenizes and tags text. Implementations must be deterministic.
type Tagger interface {
	Tag(text string) ([]Token, error)
}

// IsNoun reports whether tag is one of the noun tags (NN, NNS, NNP, NNPS).
func IsNoun(tag string) bool {
	return strings.HasPrefix(tag, "N")
}

// New returns the tagger registered under name.
func New(name string) (Tagger, error) {
	switch name {
	case "prose":
		tg, err := NewProseTagger()
		if err != nil {
			return nil, err
		}
		return tg, nil
	case "lexicon":
		return NewLexiconTagger(), nil
	default:
		return nil, fmt.Errorf("unknown tagger %q", name)
	}
}

// closedClass maps function words to the Treebank tag they usually carry.
var closedClass = buildClosedClass([]struct{ tag, words string }{
	{"DT", "a an the this that these those each every some any no all both"},
	{"CC", "and or but nor versus vs"},
	{"IN", "of in on at by for from with without into onto over under through during among " +
		"between towards toward via within across about against after before if whether as than upon"},
	{"TO", "to"},
	{"VB", "be"},
	{"VBZ", "is has does"},
	{"VBP", "are have do"},
	{"VBD", "was were had did"},
	{"VBN", "been"},
	{"VBG", "being"},
	{"MD", "can could will would should may might must"},
	{"PRP", "it they we he she"},
	{"PRP$", "its their our his her"},
	{"WP", "what who whom"},
	{"WDT", "which"},
	{"WRB", "when where why how"},
	{"RB", "not also very"},
})

func buildClosedClass(groups []struct{ tag, words string }) map[string]string {
	m := make(map[string]string)
	for _, g := range groups {
		for _, w := range strings.Fields(g.words) {
			m[w] = g.tag
		}
	}
	return m
}

// LexiconTagger is a model-free Tagger; see the package documentation.
type LexiconTagger struct{}

func NewLexiconTagger() *LexiconTagger {
	return &LexiconTagger{}
}

// Tag splits on any rune that is neither a letter nor a digit, except that
// inner apostrophes and hyphens stay inside the word ("O'Neil", "COVID-19").
func (LexiconTagger) Tag(text string) ([]Token, error) {
	words := splitWords(text)
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, Token{Text: w, Tag: lexiconTag(w)})
	}
	return tokens, nil
}

func lexiconTag(word string) string {
	lower := strings.ToLower(word)
	if tag, ok := closedClass[lower]; ok {
		return tag
	}
	if isNumber(word) {
		return "CD"
	}
	if unicode.IsUpper([]rune(word)[0]) {
		return "NNP"
	}
	return "NN"
}

func splitWords(text string) []string {
	runes := []rune(text)
	var words []string
	start := -1
	for i, r := range runes {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if !inWord && (r == '\'' || r == '-') && start >= 0 && i+1 < len(runes) {
			next := runes[i+1]
			inWord = unicode.IsLetter(next) || unicode.IsDigit(next)
		}
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			words = append(words, string(runes[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, string(runes[start:]))
	}
	return words
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}
