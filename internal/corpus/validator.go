package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ValidationError holds per-field failure messages for one record.
type ValidationError struct {
	Record string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return fmt.Sprintf("%s: %s", e.Record, strings.Join(parts, "; "))
}

type publicationRecord struct {
	Title       *string   `json:"title"`
	URL         *string   `json:"url"`
	Slug        *string   `json:"slug"`
	OurAuthors  *[]int    `json:"our_authors"`
	CoAuthors   *[]string `json:"co_authors"`
	CoLastnames *[]string `json:"co_lastnames"`
	PubDate     *string   `json:"pub_date"`
}

type personRecord struct {
	Name        *string `json:"name"`
	PersonalURL *string `json:"personal_url"`
	Org         *string `json:"org"`
	Title       *string `json:"title"`
}

// DecodePublications reads a JSON object of slug → publication, preserving
// key order. When personCount is non-negative every our_authors entry must be
// a valid person ordinal.
func DecodePublications(r io.Reader, personCount int) (*PublicationSet, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{', "publications"); err != nil {
		return nil, err
	}
	set := NewPublicationSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading publication key: %w", err)
		}
		slug, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("publication key: expected string, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("publication %q: %w", slug, err)
		}
		pub, err := decodePublication(slug, raw, personCount)
		if err != nil {
			return nil, err
		}
		if !set.Add(pub) {
			return nil, &ValidationError{
				Record: fmt.Sprintf("publication %q", slug),
				Fields: map[string]string{"slug": "duplicate key"},
			}
		}
	}
	if err := expectDelim(dec, '}', "publications"); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return set, nil
}

func decodePublication(key string, raw json.RawMessage, personCount int) (Publication, error) {
	record := fmt.Sprintf("publication %q", key)
	var rec publicationRecord
	if err := strictUnmarshal(raw, &rec); err != nil {
		return Publication{}, shapeError(record, err)
	}

	errs := make(map[string]string)
	if rec.Title == nil {
		errs["title"] = "is required"
	}
	requireText(errs, "url", rec.URL)
	requireText(errs, "slug", rec.Slug)
	if rec.Slug != nil && *rec.Slug != key {
		errs["slug"] = fmt.Sprintf("does not match key %q", key)
	}
	if rec.OurAuthors == nil {
		errs["our_authors"] = "is required"
	} else {
		seen := make(map[int]struct{}, len(*rec.OurAuthors))
		for _, a := range *rec.OurAuthors {
			if a < 0 || (personCount >= 0 && a >= personCount) {
				errs["our_authors"] = fmt.Sprintf("person ordinal %d out of range", a)
				break
			}
			if _, dup := seen[a]; dup {
				errs["our_authors"] = fmt.Sprintf("person ordinal %d repeated", a)
				break
			}
			seen[a] = struct{}{}
		}
	}
	if rec.CoAuthors == nil {
		errs["co_authors"] = "is required"
	}
	if rec.CoLastnames == nil {
		errs["co_lastnames"] = "is required"
	}
	if len(errs) > 0 {
		return Publication{}, &ValidationError{Record: record, Fields: errs}
	}
	return Publication{
		Title:       *rec.Title,
		URL:         *rec.URL,
		Slug:        *rec.Slug,
		OurAuthors:  *rec.OurAuthors,
		CoAuthors:   *rec.CoAuthors,
		CoLastnames: *rec.CoLastnames,
		PubDate:     rec.PubDate,
	}, nil
}

// DecodePersons reads the JSON array of faculty members. org and title may
// be null, which the directory produces for people without an affiliation.
func DecodePersons(r io.Reader) ([]Person, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '[', "persons"); err != nil {
		return nil, err
	}
	persons := make([]Person, 0)
	for i := 0; dec.More(); i++ {
		record := fmt.Sprintf("person #%d", i)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w", record, err)
		}
		var rec personRecord
		if err := strictUnmarshal(raw, &rec); err != nil {
			return nil, shapeError(record, err)
		}
		errs := make(map[string]string)
		requireText(errs, "name", rec.Name)
		requireText(errs, "personal_url", rec.PersonalURL)
		if len(errs) > 0 {
			return nil, &ValidationError{Record: record, Fields: errs}
		}
		persons = append(persons, Person{
			Name:        *rec.Name,
			PersonalURL: *rec.PersonalURL,
			Org:         deref(rec.Org),
			Title:       deref(rec.Title),
		})
	}
	if err := expectDelim(dec, ']', "persons"); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return persons, nil
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// shapeError turns a decoder failure into a field-level ValidationError where
// the decoder tells us which field was wrong.
func shapeError(record string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &ValidationError{
			Record: record,
			Fields: map[string]string{typeErr.Field: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)},
		}
	}
	if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
		field := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return &ValidationError{Record: record, Fields: map[string]string{field: "unknown field"}}
	}
	return fmt.Errorf("%s: %w", record, err)
}

func requireText(errs map[string]string, field string, v *string) {
	switch {
	case v == nil:
		errs[field] = "is required"
	case strings.TrimSpace(*v) == "":
		errs[field] = "must not be empty"
	}
}

func expectDelim(dec *json.Decoder, want json.Delim, what string) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading %s: %w", what, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("reading %s: expected %q, got %v", what, want, tok)
	}
	return nil
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
