// Package crawler scrapes the faculty directory and each member's
// publication list into the corpus model.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
	apperrors "github.com/sandeepstha184/IR-assignment123/pkg/errors"
	"github.com/sandeepstha184/IR-assignment123/pkg/metrics"
	"github.com/sandeepstha184/IR-assignment123/pkg/resilience"
)

// StatusError is returned for a response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return apperrors.ErrUpstream }

type Crawler struct {
	cfg     config.CrawlerConfig
	client  *http.Client
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a Crawler. m may be nil.
func New(cfg config.CrawlerConfig, m *metrics.Metrics) *Crawler {
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 1
	}
	c := &Crawler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		retry: resilience.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     resilience.Backoff{Initial: cfg.Politeness, Max: 30 * time.Second, Jitter: 0.1},
		},
		metrics: m,
		logger:  slog.Default().With("component", "crawler"),
	}
	c.retry.OnRetry = func(int, error, time.Duration) { c.count("retry") }
	return c
}

// CrawlPersons fetches the directory listing. Failing to fetch it is fatal.
func (c *Crawler) CrawlPersons(ctx context.Context) ([]corpus.Person, error) {
	doc, base, err := c.fetch(ctx, c.cfg.ProfilesURL)
	if err != nil {
		return nil, fmt.Errorf("fetching faculty listing: %w", err)
	}
	persons, skipped := parsePersons(doc, base)
	c.logger.Info("faculty listing crawled", "persons", len(persons), "skipped", skipped)
	return persons, nil
}

// CrawlPublications visits each person's publication pages in order and
// merges the results. A person whose first page cannot be fetched is
// skipped; only cancellation aborts the crawl.
func (c *Crawler) CrawlPublications(ctx context.Context, persons []corpus.Person) (*corpus.PublicationSet, error) {
	set := corpus.NewPublicationSet()
	for i, person := range persons {
		if c.cfg.LimitFaculty > 0 && i == c.cfg.LimitFaculty {
			c.logger.Info("stopping at faculty limit", "limit", c.cfg.LimitFaculty)
			break
		}
		if err := sleep(ctx, c.cfg.Politeness); err != nil {
			return nil, err
		}
		log := c.logger.With("person", person.Name, "ordinal", i)
		pages, err := c.fetchPublicationPages(ctx, person)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("skipping person, publications unavailable", "error", err)
			continue
		}
		added := 0
		for _, entries := range pages {
			for _, e := range entries {
				if c.merge(set, i, person, e) {
					added++
				}
			}
		}
		log.Info("publications crawled", "pages", len(pages), "new", added, "total", set.Len())
	}
	return set, nil
}

// Crawl runs both phases.
func (c *Crawler) Crawl(ctx context.Context) ([]corpus.Person, *corpus.PublicationSet, error) {
	persons, err := c.CrawlPersons(ctx)
	if err != nil {
		return nil, nil, err
	}
	pubs, err := c.CrawlPublications(ctx, persons)
	if err != nil {
		return nil, nil, err
	}
	return persons, pubs, nil
}

// merge adds e for person ordinal i. A slug seen before gains i as an
// internal author, and the person's name parts as indexable last names,
// unless i is already listed; the record is never replaced. It reports
// whether a new publication was added.
func (c *Crawler) merge(set *corpus.PublicationSet, i int, person corpus.Person, e entry) bool {
	nameParts := strings.Fields(person.Name)
	if existing, ok := set.Get(e.Slug); ok {
		if !existing.HasAuthor(i) {
			existing.OurAuthors = append(existing.OurAuthors, i)
			existing.CoLastnames = append(existing.CoLastnames, nameParts...)
		}
		c.logger.Debug("duplicate publication", "slug", e.Slug, "person", person.Name)
		return false
	}
	set.Add(corpus.Publication{
		Title:       e.Title,
		URL:         e.URL,
		Slug:        e.Slug,
		OurAuthors:  []int{i},
		CoAuthors:   e.CoAuthors,
		CoLastnames: append(e.CoLastnames, nameParts...),
		PubDate:     e.PubDate,
	})
	if c.metrics != nil {
		c.metrics.CrawledPubsTotal.Inc()
	}
	return true
}

// fetchPublicationPages returns the parsed entries of every page, in page
// order. Pages after the first are fetched concurrently; one that fails is
// logged and left empty.
func (c *Crawler) fetchPublicationPages(ctx context.Context, person corpus.Person) ([][]entry, error) {
	listURL := strings.TrimRight(person.PersonalURL, "/") + "/publications"
	first, base, err := c.fetch(ctx, listURL)
	if err != nil {
		return nil, err
	}
	n := pageCount(first)
	pages := make([][]entry, n)
	pages[0] = parsePublications(first, base)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.PageWorkers)
	for p := 2; p <= n; p++ {
		g.Go(func() error {
			pageURL := fmt.Sprintf("%s/?page=%d", listURL, p)
			doc, base, err := c.fetch(gctx, pageURL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("skipping publications page", "url", pageURL, "error", err)
				return nil
			}
			pages[p-1] = parsePublications(doc, base)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// fetch GETs rawURL with retries. Transport errors, 429 and 5xx responses
// are retried; any other non-200 status is not.
func (c *Crawler) fetch(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	var (
		doc  *goquery.Document
		base *url.URL
	)
	err := resilience.Retry(ctx, "crawl-fetch", c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			c.count("error")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.count("status")
			statusErr := &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return resilience.After(statusErr, retryAfter(resp.Header.Get("Retry-After")))
			}
			return resilience.Permanent(statusErr)
		}
		d, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			c.count("error")
			return fmt.Errorf("parsing %s: %w", rawURL, err)
		}
		c.count("ok")
		doc, base = d, resp.Request.URL
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, base, nil
}

// retryAfter parses the delta-seconds form of Retry-After. HTTP dates are
// ignored and the normal backoff applies.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (c *Crawler) count(outcome string) {
	if c.metrics != nil {
		c.metrics.CrawlRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsStatus reports whether err came from a response with the given status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
