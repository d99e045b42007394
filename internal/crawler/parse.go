package crawler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
)

// entry is one publication as listed on a person's publications page,
// before it is merged into the PublicationSet.
type entry struct {
	Title       string
	URL         string
	Slug        string
	CoAuthors   []string
	CoLastnames []string
	PubDate     *string
}

// parsePersons reads the directory listing. Each person sits in a
// div.result-container with an a.person link; entries without an
// ul.organisations block are not faculty and are skipped. The returned
// count is the number skipped.
func parsePersons(doc *goquery.Document, base *url.URL) ([]corpus.Person, int) {
	persons := make([]corpus.Person, 0)
	skipped := 0
	doc.Find("div.result-container").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.person").First()
		href, ok := link.Attr("href")
		if !ok {
			skipped++
			return
		}
		orgs := s.Find("ul.organisations").First()
		if orgs.Length() == 0 {
			skipped++
			return
		}
		persons = append(persons, corpus.Person{
			Name:        strings.TrimSpace(link.Find("span").First().Text()),
			PersonalURL: resolve(base, href),
			Org:         strings.TrimSpace(orgs.Find("a.organisation").First().Text()),
			Title:       strings.TrimSpace(orgs.Find("span.minor").First().Text()),
		})
	})
	return persons, skipped
}

// parsePublications reads one page of a person's publication list. Author
// citations are the direct span children of the entry's first div, up to
// the span.date that carries the publication date.
func parsePublications(doc *goquery.Document, base *url.URL) []entry {
	entries := make([]entry, 0)
	doc.Find("div.result-container").Each(func(_ int, cont *goquery.Selection) {
		link := cont.Find("div h3 a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		pubURL := resolve(base, href)
		e := entry{
			Title:       strings.TrimSpace(link.Find("span").First().Text()),
			URL:         pubURL,
			Slug:        corpus.SlugFromURL(pubURL),
			CoAuthors:   make([]string, 0),
			CoLastnames: make([]string, 0),
		}
		if e.Slug == "" {
			return
		}
		cont.Find("div").First().ChildrenFiltered("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			text := span.Text()
			if span.HasClass("date") {
				e.PubDate = &text
				return false
			}
			e.CoAuthors = append(e.CoAuthors, text)
			if last, ok := lastName(text); ok {
				e.CoLastnames = append(e.CoLastnames, last)
			}
			return true
		})
		entries = append(entries, e)
	})
	return entries
}

// pageCount reads the number of result pages from the last link in
// nav.pages, whose href ends in "page=N". Without pagination there is one.
func pageCount(doc *goquery.Document) int {
	href, ok := doc.Find("nav.pages ul li").Last().Find("a").Attr("href")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(href[strings.LastIndex(href, "=")+1:])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// lastName returns the text before the first comma of a citation such as
// "Smith, J.". Citations without a comma carry no usable last name.
func lastName(citation string) (string, bool) {
	i := strings.Index(citation, ",")
	if i < 0 {
		return "", false
	}
	return citation[:i], true
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
