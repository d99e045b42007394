// Package tracing times the stages of one search as a tree of spans carried
// in the context. A finished tree can be logged through slog or rendered as
// a Server-Timing header value.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sandeepstha184/IR-assignment123/pkg/logger"
)

type spanKey struct{}

type Span struct {
	name    string
	traceID string
	start   time.Time

	mu       sync.Mutex
	end      time.Time
	attrs    []slog.Attr
	children []*Span
}

// Start opens a span under the one in ctx. Without a parent it opens a new
// trace whose ID is the request ID in ctx, if any.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{name: name, start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.traceID = logger.RequestID(ctx)
	}
	return context.WithValue(ctx, spanKey{}, span), span
}

// FromContext returns the innermost open span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// End stops the clock. Calling End twice keeps the first end time. All Span
// methods accept a nil receiver.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.end.IsZero() {
		s.end = time.Now()
	}
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Span) TraceID() string {
	if s == nil {
		return ""
	}
	return s.traceID
}

// Duration is the elapsed time so far for an open span.
func (s *Span) Duration() time.Duration {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.end.IsZero() {
		return time.Since(s.start)
	}
	return s.end.Sub(s.start)
}

func (s *Span) Children() []*Span {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes one debug record per span, depth first. Each record's path
// names the span and its ancestors, e.g. "search/cache/rank".
func (s *Span) Log(l *slog.Logger) {
	if s == nil {
		return
	}
	s.walk("", func(path string, span *Span) {
		span.mu.Lock()
		attrs := append([]slog.Attr{
			slog.String("trace_id", span.traceID),
			slog.String("path", path),
			slog.Int64("duration_us", span.end.Sub(span.start).Microseconds()),
		}, span.attrs...)
		span.mu.Unlock()
		l.LogAttrs(context.Background(), slog.LevelDebug, "span", attrs...)
	})
}

// ServerTiming renders the tree as a Server-Timing header value with one
// metric per span in milliseconds. Metric names are span paths joined by
// dots, since "/" is not a valid token character.
func (s *Span) ServerTiming() string {
	if s == nil {
		return ""
	}
	var parts []string
	s.walk("", func(path string, span *Span) {
		name := strings.ReplaceAll(path, "/", ".")
		parts = append(parts, fmt.Sprintf("%s;dur=%.3f", name, float64(span.Duration().Microseconds())/1000))
	})
	return strings.Join(parts, ", ")
}

func (s *Span) walk(prefix string, visit func(path string, span *Span)) {
	path := s.name
	if prefix != "" {
		path = prefix + "/" + s.name
	}
	visit(path, s)
	for _, child := range s.Children() {
		child.walk(path, visit)
	}
}
