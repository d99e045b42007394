package corpus

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publicationsJSON = `{
  "zeta-study": {
    "title": "Zeta Study of Health",
    "url": "https://example.org/en/publications/zeta-study",
    "slug": "zeta-study",
    "our_authors": [1],
    "co_authors": ["Smith, J.", "Doe, A."],
    "co_lastnames": ["Smith", "Doe", "Ada", "Lovelace"],
    "pub_date": "2021"
  },
  "alpha-cancer": {
    "title": "Alpha Cancer Screening",
    "url": "https://example.org/en/publications/alpha-cancer",
    "slug": "alpha-cancer",
    "our_authors": [0, 1],
    "co_authors": [],
    "co_lastnames": ["Grace", "Hopper"],
    "pub_date": null
  }
}`

func TestDecodePublicationsPreservesOrder(t *testing.T) {
	set, err := DecodePublications(strings.NewReader(publicationsJSON), 2)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	first, ok := set.At(0)
	require.True(t, ok)
	assert.Equal(t, "zeta-study", first.Slug)
	require.NotNil(t, first.PubDate)
	assert.Equal(t, "2021", *first.PubDate)

	second, ok := set.At(1)
	require.True(t, ok)
	assert.Equal(t, "alpha-cancer", second.Slug)
	assert.Nil(t, second.PubDate)
	assert.Equal(t, []int{0, 1}, second.OurAuthors)

	_, ok = set.At(2)
	assert.False(t, ok)
}

func TestPublicationSetJSONRoundTripKeepsOrder(t *testing.T) {
	set, err := DecodePublications(strings.NewReader(publicationsJSON), -1)
	require.NoError(t, err)

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(data), "zeta-study"), strings.Index(string(data), "alpha-cancer"))

	var back PublicationSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, set.List(), back.List())
}

func TestDecodePublicationsValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		field  string
		people int
	}{
		{
			name:  "missing title",
			body:  `{"a":{"url":"u/a","slug":"a","our_authors":[],"co_authors":[],"co_lastnames":[],"pub_date":null}}`,
			field: "title",
		},
		{
			name:  "slug mismatch",
			body:  `{"a":{"title":"T","url":"u/b","slug":"b","our_authors":[],"co_authors":[],"co_lastnames":[],"pub_date":null}}`,
			field: "slug",
		},
		{
			name:   "author out of range",
			body:   `{"a":{"title":"T","url":"u/a","slug":"a","our_authors":[3],"co_authors":[],"co_lastnames":[],"pub_date":null}}`,
			field:  "our_authors",
			people: 2,
		},
		{
			name:  "repeated author",
			body:  `{"a":{"title":"T","url":"u/a","slug":"a","our_authors":[0,0],"co_authors":[],"co_lastnames":[],"pub_date":null}}`,
			field: "our_authors",
		},
		{
			name:  "wrong type",
			body:  `{"a":{"title":5,"url":"u/a","slug":"a","our_authors":[],"co_authors":[],"co_lastnames":[],"pub_date":null}}`,
			field: "title",
		},
		{
			name:  "unknown field",
			body:  `{"a":{"title":"T","genre":"x","url":"u/a","slug":"a","our_authors":[],"co_authors":[],"co_lastnames":[],"pub_date":null}}`,
			field: "genre",
		},
		{
			name:  "missing co_lastnames",
			body:  `{"a":{"title":"T","url":"u/a","slug":"a","our_authors":[],"co_authors":[],"pub_date":null}}`,
			field: "co_lastnames",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			people := tt.people
			if people == 0 {
				people = -1
			}
			_, err := DecodePublications(strings.NewReader(tt.body), people)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Contains(t, verr.Error(), `publication "a"`)
		})
	}
}

func TestDecodePublicationsAllowsEmptyTitle(t *testing.T) {
	set, err := DecodePublications(strings.NewReader(
		`{"a":{"title":"","url":"u/a","slug":"a","our_authors":[],"co_authors":[],"co_lastnames":["Smith"],"pub_date":null}}`), -1)
	require.NoError(t, err)
	p, ok := set.At(0)
	require.True(t, ok)
	assert.Empty(t, p.Title)
	assert.Equal(t, "Smith", p.SearchableText())
}

func TestDecodePublicationsRejectsNonObject(t *testing.T) {
	_, err := DecodePublications(strings.NewReader(`[1,2]`), -1)
	require.Error(t, err)
	_, err = DecodePublications(strings.NewReader(`{} {}`), -1)
	require.Error(t, err)
	_, err = DecodePublications(strings.NewReader(`{"a":`), -1)
	require.Error(t, err)
}

func TestDecodePersons(t *testing.T) {
	body := `[
	  {"name":"Ada Lovelace","personal_url":"https://example.org/en/persons/ada","org":"Centre for Health","title":"Professor"},
	  {"name":"Grace Hopper","personal_url":"https://example.org/en/persons/grace","org":null,"title":null}
	]`
	persons, err := DecodePersons(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "<Ada Lovelace, Professor at Centre for Health>", persons[0].String())
	assert.Equal(t, "", persons[1].Org)

	_, err = DecodePersons(strings.NewReader(`[{"name":"","personal_url":"x"}]`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must not be empty", verr.Fields["name"])
}

func TestSearchableText(t *testing.T) {
	p := Publication{Title: "Deep Learning", CoLastnames: []string{"Smith", "Ada", "Lovelace"}}
	assert.Equal(t, "Deep Learning Smith Ada Lovelace", p.SearchableText())
	assert.Equal(t, "Solo", Publication{Title: "Solo"}.SearchableText())
}

func TestPublicationSetAddRejectsDuplicates(t *testing.T) {
	set := NewPublicationSet()
	assert.True(t, set.Add(Publication{Title: "A", Slug: "a"}))
	assert.False(t, set.Add(Publication{Title: "A again", Slug: "a"}))
	assert.Equal(t, 1, set.Len())

	p, ok := set.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", p.Title)
	assert.NotNil(t, p.OurAuthors)

	p.OurAuthors = append(p.OurAuthors, 4)
	stored, _ := set.At(0)
	assert.True(t, stored.HasAuthor(4))
}

func TestSlugFromURL(t *testing.T) {
	assert.Equal(t, "my-paper", SlugFromURL("https://example.org/en/publications/my-paper"))
	assert.Equal(t, "bare", SlugFromURL("bare"))
}
