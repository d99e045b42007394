package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
)

var defaultLoadQueries = []string{
	"health",
	"cancer screening",
	"machine learning",
	"patient care",
	"diabetes",
	"mental health",
	"stroke rehabilitation",
	"nursing education",
}

func loadtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "loadtest",
		Usage: "Drive concurrent queries at a running search API and report latency",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Base URL of the search service"},
			&cli.IntFlag{Name: "concurrency", Value: 10, Usage: "Number of concurrent workers"},
			&cli.DurationFlag{Name: "duration", Value: 30 * time.Second, Usage: "Test duration"},
			&cli.StringSliceFlag{Name: "query", Usage: "Query to send (repeatable; a built-in set is used when empty)"},
		},
		Action: func(c *cli.Context) error {
			lt := loadTest{
				BaseURL:     c.String("url"),
				Concurrency: c.Int("concurrency"),
				Duration:    c.Duration("duration"),
				Queries:     c.StringSlice("query"),
			}
			if len(lt.Queries) == 0 {
				lt.Queries = defaultLoadQueries
			}
			if lt.Concurrency < 1 {
				return fmt.Errorf("concurrency must be at least 1")
			}
			fmt.Fprintf(c.App.Writer, "Target: %s  workers: %d  duration: %s  queries: %d\n",
				lt.BaseURL, lt.Concurrency, lt.Duration, len(lt.Queries))

			stats := lt.run(c.Context, http.DefaultClient)
			stats.report(c.App.Writer, lt.Duration)
			if stats.total.Load() == 0 {
				return fmt.Errorf("no requests completed; is the service running?")
			}
			return nil
		},
	}
}

type loadTest struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
}

type loadStats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (s *loadStats) record(d time.Duration, code int, cacheHit bool, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if code >= 200 && code < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	s.mu.Unlock()
}

// run cycles each worker through the query list, offset by worker number,
// until Duration elapses or ctx is cancelled.
func (lt loadTest) run(ctx context.Context, client *http.Client) *loadStats {
	stats := &loadStats{codes: make(map[int]int64)}
	ctx, cancel := context.WithTimeout(ctx, lt.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < lt.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				query := lt.Queries[next%len(lt.Queries)]
				next++
				lt.once(ctx, client, query, stats)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func (lt loadTest) once(ctx context.Context, client *http.Client, query string, stats *loadStats) {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", lt.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		stats.record(0, 0, false, err)
		return
	}
	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		// Requests cut off by the deadline are not failures of the service.
		if ctx.Err() == nil {
			stats.record(elapsed, 0, false, err)
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	stats.record(elapsed, resp.StatusCode, resp.Header.Get("X-Cache") == "HIT", nil)
}

func (s *loadStats) report(w io.Writer, elapsed time.Duration) {
	total := s.total.Load()
	fmt.Fprintf(w, "\nRequests:   %d (%d ok, %d failed, %d cache hits)\n",
		total, s.success.Load(), s.failed.Load(), s.cacheHits.Load())
	if total > 0 && elapsed > 0 {
		fmt.Fprintf(w, "Rate:       %.2f req/s\n", float64(total)/elapsed.Seconds())
	}

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(s.codes))
	for code, n := range s.codes {
		counts[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintf(w, "Latency:    min %s  avg %s  p50 %s  p95 %s  p99 %s  max %s\n",
			latencies[0], sum/time.Duration(len(latencies)),
			latencyPercentile(latencies, 50), latencyPercentile(latencies, 95),
			latencyPercentile(latencies, 99), latencies[len(latencies)-1])
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  HTTP %d: %d\n", code, counts[code])
	}
}

func latencyPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
