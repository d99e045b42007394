package corpus

import (
	"bytes"
	"encoding/json"
	"iter"
)

// PublicationSet maps slug to Publication and remembers insertion order.
// The zero value is not usable; call NewPublicationSet.
type PublicationSet struct {
	order  []string
	bySlug map[string]*Publication
}

func NewPublicationSet() *PublicationSet {
	return &PublicationSet{bySlug: make(map[string]*Publication)}
}

// Add appends pub under its slug. It returns false, leaving the set
// unchanged, when the slug is already present.
func (s *PublicationSet) Add(pub Publication) bool {
	if _, exists := s.bySlug[pub.Slug]; exists {
		return false
	}
	normalize(&pub)
	s.order = append(s.order, pub.Slug)
	s.bySlug[pub.Slug] = &pub
	return true
}

// Get returns the stored publication for slug. The pointer stays valid for
// the life of the set; the crawler uses it to merge duplicate sightings.
func (s *PublicationSet) Get(slug string) (*Publication, bool) {
	p, ok := s.bySlug[slug]
	return p, ok
}

// At returns the publication at ordinal i.
func (s *PublicationSet) At(i int) (Publication, bool) {
	if i < 0 || i >= len(s.order) {
		return Publication{}, false
	}
	return *s.bySlug[s.order[i]], true
}

func (s *PublicationSet) Len() int {
	return len(s.order)
}

// All yields (ordinal, publication) pairs in insertion order.
func (s *PublicationSet) All() iter.Seq2[int, Publication] {
	return func(yield func(int, Publication) bool) {
		for i, slug := range s.order {
			if !yield(i, *s.bySlug[slug]) {
				return
			}
		}
	}
}

// List returns a copy of the publications in ordinal order.
func (s *PublicationSet) List() []Publication {
	out := make([]Publication, 0, len(s.order))
	for _, p := range s.All() {
		out = append(out, p)
	}
	return out
}

// MarshalJSON writes a JSON object whose keys appear in ordinal order.
func (s *PublicationSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, slug := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(slug)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.bySlug[slug])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an ordered slug object with full schema checks but
// without person-reference checks; use DecodePublications for those.
func (s *PublicationSet) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePublications(bytes.NewReader(data), -1)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

func normalize(p *Publication) {
	if p.OurAuthors == nil {
		p.OurAuthors = []int{}
	}
	if p.CoAuthors == nil {
		p.CoAuthors = []string{}
	}
	if p.CoLastnames == nil {
		p.CoLastnames = []string{}
	}
}
