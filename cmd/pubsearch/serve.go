package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sandeepstha184/IR-assignment123/internal/analytics"
	"github.com/sandeepstha184/IR-assignment123/internal/analytics/snapshot"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/cache"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/handler"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/ranker"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
	"github.com/sandeepstha184/IR-assignment123/pkg/health"
	"github.com/sandeepstha184/IR-assignment123/pkg/kafka"
	"github.com/sandeepstha184/IR-assignment123/pkg/metrics"
	"github.com/sandeepstha184/IR-assignment123/pkg/middleware"
	"github.com/sandeepstha184/IR-assignment123/pkg/postgres"
	pkgredis "github.com/sandeepstha184/IR-assignment123/pkg/redis"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search page and JSON API over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Override the listen port"},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}
			return serve(c.Context, cfg)
		},
	}
}

// services are the optional backends the server runs with. Each field is
// nil when the matching config section is disabled or unreachable.
type services struct {
	metrics   *metrics.Metrics
	redis     *pkgredis.Client
	cache     *cache.QueryCache
	producer  *kafka.Producer
	snapshots *snapshot.Store
	pg        *postgres.Client
}

func (s *services) close() {
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			slog.Error("closing kafka producer", "error", err)
		}
	}
	if s.redis != nil {
		st := s.redis.PoolStats()
		slog.Debug("redis pool", "hits", st.Hits, "misses", st.Misses, "timeouts", st.Timeouts)
		s.redis.Close()
	}
	if s.pg != nil {
		s.pg.Close()
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	exec, err := loadExecutor(cfg)
	if err != nil {
		return err
	}
	stats := exec.Stats()

	svc := connect(ctx, cfg, exec.Fingerprint(), exec.CountMode())
	defer svc.close()
	if svc.metrics != nil {
		svc.metrics.IndexTerms.Set(float64(stats["terms"].(int)))
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if svc.producer != nil {
		publisher = svc.producer
	}
	collector := analytics.NewCollector(aggregator, publisher, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	defer collector.Close()

	var history analytics.SnapshotLister
	var saved <-chan struct{}
	if svc.snapshots != nil {
		history = svc.snapshots
		saved = svc.snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	checker := health.NewChecker()
	checker.RegisterCritical("index", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%v publications, %v terms", stats["publications"], stats["terms"]),
		}
	})
	checker.Register("redis", pingCheck(svc.redis != nil, func(ctx context.Context) error { return svc.redis.Ping(ctx) }))
	checker.Register("postgres", poolCheck(svc.pg))

	h := handler.New(exec, svc.cache, collector, svc.metrics, handler.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		Tracing:      cfg.Tracing.Enabled,
	})
	analyticsH := analytics.NewHandler(aggregator, history)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain(ctx, mux, svc.metrics, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if saved != nil {
		<-saved
	}
	slog.Info("search service stopped")
	return nil
}

// chain wraps mux so that the metrics middleware sees the matched route
// pattern, which ServeMux only sets on the request it dispatches.
func chain(ctx context.Context, mux *http.ServeMux, m *metrics.Metrics, cfg config.ServerConfig) http.Handler {
	var h http.Handler = mux
	if m != nil {
		h = middleware.Metrics(m)(h)
	}
	h = middleware.AdminToken(cfg.AdminToken, "/api/v1/cache/invalidate")(h)
	if cfg.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.RateLimit, time.Minute)
		limiter.StartPruning(ctx, 5*time.Minute)
		h = middleware.RateLimit(limiter)(h)
	}
	if len(cfg.CORSOrigins) > 0 {
		h = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins))(h)
	}
	h = middleware.Timeout(cfg.WriteTimeout)(h)
	return middleware.RequestID(h)
}

// connect brings up every enabled backend. Failures are logged and the
// backend is left out; search keeps working without any of them.
func connect(ctx context.Context, cfg *config.Config, fingerprint string, mode ranker.CountMode) *services {
	svc := &services{}
	if cfg.Metrics.Enabled {
		svc.metrics = metrics.New()
		if _, err := metrics.StartServer(ctx, cfg.Metrics.Port); err != nil {
			slog.Warn("metrics endpoint disabled", "error", err)
		}
	}

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			svc.redis = client
			svc.cache = cache.New(client, cfg.Redis.CacheTTL, fingerprint, string(mode), svc.metrics)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Kafka.Enabled {
		svc.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		slog.Info("search events published", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
			return svc
		}
		st := snapshot.NewStore(pg, cfg.Analytics.SnapshotRetention)
		if err := st.EnsureSchema(ctx); err != nil {
			slog.Warn("analytics snapshot schema", "error", err)
			pg.Close()
			return svc
		}
		svc.pg = pg
		svc.snapshots = st
	}
	return svc
}

// poolCheck is pingCheck plus connection pool usage in the message.
func poolCheck(pg *postgres.Client) health.Check {
	ping := pingCheck(pg != nil, func(ctx context.Context) error { return pg.Ping(ctx) })
	return func(ctx context.Context) health.ComponentHealth {
		res := ping(ctx)
		if res.Status == health.StatusUp {
			st := pg.Stats()
			res.Message = fmt.Sprintf("%d open, %d in use", st.OpenConnections, st.InUse)
		}
		return res
	}
}

func pingCheck(configured bool, ping func(context.Context) error) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		if !configured {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	}
}
