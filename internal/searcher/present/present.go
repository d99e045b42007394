// Package present renders search results for people: highlighted titles for
// the terminal and segment lists for the HTML templates.
package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/sandeepstha184/IR-assignment123/internal/searcher/executor"
)

const (
	ansiHighlight = "\033[93m"
	ansiReset     = "\033[0m"
)

// Segment is one title word and whether it matched a keyword.
type Segment struct {
	Text  string
	Match bool
}

// Segments splits title on whitespace and marks each word whose lowercase
// form equals the lowercase form of any keyword. Punctuation is part of the
// word, so "Health:" does not match "health".
func Segments(title string, keywords []string) []Segment {
	want := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		want[strings.ToLower(k)] = struct{}{}
	}
	words := strings.Fields(title)
	segs := make([]Segment, len(words))
	for i, w := range words {
		_, match := want[strings.ToLower(w)]
		segs[i] = Segment{Text: w, Match: match}
	}
	return segs
}

// Highlight returns title with matching words wrapped in ANSI bright-yellow
// codes, words joined by single spaces.
func Highlight(title string, keywords []string) string {
	segs := Segments(title, keywords)
	parts := make([]string, len(segs))
	for i, s := range segs {
		if s.Match {
			parts[i] = ansiHighlight + s.Text + ansiReset
		} else {
			parts[i] = s.Text
		}
	}
	return strings.Join(parts, " ")
}

// Options control WriteText.
type Options struct {
	// Color enables ANSI highlighting of matched title words.
	Color bool
	// Details adds URL, date and author lines under each title.
	Details bool
}

// WriteText prints res the way the interactive prompt shows it.
func WriteText(w io.Writer, res *executor.SearchResult, opts Options) error {
	if len(res.Hits) == 0 {
		_, err := fmt.Fprintln(w, "No results found")
		return err
	}
	if _, err := fmt.Fprint(w, "\n\nResults: \n"); err != nil {
		return err
	}
	for _, hit := range res.Hits {
		title := strings.Join(strings.Fields(hit.Title), " ")
		if opts.Color {
			title = Highlight(hit.Title, res.Keywords)
		}
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
		if !opts.Details {
			continue
		}
		if err := writeDetails(w, hit); err != nil {
			return err
		}
	}
	if res.TotalHits > len(res.Hits) {
		_, err := fmt.Fprintf(w, "(%d of %d results shown)\n", len(res.Hits), res.TotalHits)
		return err
	}
	return nil
}

func writeDetails(w io.Writer, hit executor.Hit) error {
	var b strings.Builder
	fmt.Fprintf(&b, "    %s\n", hit.URL)
	if hit.PubDate != nil {
		fmt.Fprintf(&b, "    Published: %s\n", *hit.PubDate)
	}
	names := make([]string, len(hit.Authors))
	for i, a := range hit.Authors {
		names[i] = a.Name
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "    Authors: %s\n", strings.Join(names, ", "))
	}
	if len(hit.CoAuthors) > 0 {
		fmt.Fprintf(&b, "    Co-authors: %s\n", strings.Join(hit.CoAuthors, "; "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
