package present

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepstha184/IR-assignment123/internal/searcher/executor"
)

func TestSegments(t *testing.T) {
	segs := Segments("Deep  Learning for HEALTH: a review", []string{"health:", "Learning"})
	assert.Equal(t, []Segment{
		{"Deep", false},
		{"Learning", true},
		{"for", false},
		{"HEALTH:", true},
		{"a", false},
		{"review", false},
	}, segs)
}

func TestHighlight(t *testing.T) {
	assert.Equal(t, "\033[93mHealth\033[0m of cities", Highlight("Health of  cities", []string{"HEALTH"}))
	assert.Equal(t, "plain title", Highlight(" plain title ", nil))
}

func TestWriteText(t *testing.T) {
	date := "2021"
	res := &executor.SearchResult{
		Keywords:  []string{"health"},
		TotalHits: 2,
		Hits: []executor.Hit{{
			Title:     "Health Systems",
			URL:       "https://example.org/p",
			PubDate:   &date,
			Authors:   []executor.Author{{Name: "Ada Lovelace"}},
			CoAuthors: []string{"Smith, J."},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, res, Options{Color: true, Details: true}))
	out := buf.String()
	assert.Contains(t, out, "Results: \n\033[93mHealth\033[0m Systems\n")
	assert.Contains(t, out, "Published: 2021")
	assert.Contains(t, out, "Authors: Ada Lovelace")
	assert.Contains(t, out, "Co-authors: Smith, J.")
	assert.Contains(t, out, "(1 of 2 results shown)")

	buf.Reset()
	require.NoError(t, WriteText(&buf, res, Options{}))
	assert.Equal(t, "\n\nResults: \nHealth Systems\n(1 of 2 results shown)\n", buf.String())
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, &executor.SearchResult{Hits: []executor.Hit{}}, Options{Color: true}))
	assert.Equal(t, "No results found\n", buf.String())
}
