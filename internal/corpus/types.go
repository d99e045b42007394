// Package corpus defines the crawled faculty records and their JSON forms.
//
// Publications are kept in a PublicationSet: a slug-keyed mapping that
// remembers insertion order. That order fixes the publication ordinals the
// reverse index stores, so it survives every save/load round trip.
package corpus

import "strings"

// Person is a faculty member listed in the directory. Immutable once crawled.
type Person struct {
	Name        string `json:"name"`
	PersonalURL string `json:"personal_url"`
	Org         string `json:"org"`
	Title       string `json:"title"`
}

func (p Person) String() string {
	return "<" + p.Name + ", " + p.Title + " at " + p.Org + ">"
}

// Publication is one research output. OurAuthors are ordinals into the
// Person list; CoLastnames is only extra indexable text.
type Publication struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Slug        string   `json:"slug"`
	OurAuthors  []int    `json:"our_authors"`
	CoAuthors   []string `json:"co_authors"`
	CoLastnames []string `json:"co_lastnames"`
	PubDate     *string  `json:"pub_date"`
}

// SearchableText is the blob the index builder tags: the title followed by
// every co-author last name, space separated. An untitled record yields
// only the last names.
func (p Publication) SearchableText() string {
	parts := make([]string, 0, 1+len(p.CoLastnames))
	if p.Title != "" {
		parts = append(parts, p.Title)
	}
	parts = append(parts, p.CoLastnames...)
	return strings.Join(parts, " ")
}

// HasAuthor reports whether the person ordinal is already an internal author.
func (p Publication) HasAuthor(person int) bool {
	for _, a := range p.OurAuthors {
		if a == person {
			return true
		}
	}
	return false
}

// SlugFromURL returns the last path segment of a publication URL.
func SlugFromURL(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

// Corpus is the immutable snapshot the searcher works from.
type Corpus struct {
	Persons      []Person
	Publications *PublicationSet
}

// Publication returns the record at ordinal i.
func (c *Corpus) Publication(i int) (Publication, bool) {
	if c == nil || c.Publications == nil {
		return Publication{}, false
	}
	return c.Publications.At(i)
}

// Person returns the record at ordinal i.
func (c *Corpus) Person(i int) (Person, bool) {
	if c == nil || i < 0 || i >= len(c.Persons) {
		return Person{}, false
	}
	return c.Persons[i], true
}
