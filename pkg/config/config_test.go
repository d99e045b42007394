package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "occurrences", cfg.Search.CountMode)
	assert.Equal(t, "prose", cfg.Indexer.Tagger)
	assert.Equal(t, "index.json", cfg.Data.IndexFile)
	assert.Equal(t, 200*time.Millisecond, cfg.Crawler.Politeness)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9999
search:
  countMode: distinct
indexer:
  tagger: lexicon
  dedupPostings: true
data:
  dir: /tmp/corpus
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("SP_SERVER_PORT", "7000")
	t.Setenv("SP_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "distinct", cfg.Search.CountMode)
	assert.Equal(t, "lexicon", cfg.Indexer.Tagger)
	assert.True(t, cfg.Indexer.DedupPostings)
	assert.Equal(t, "/tmp/corpus", cfg.Data.Dir)
	assert.True(t, cfg.Redis.Enabled)
	// untouched sections keep their defaults
	assert.Equal(t, "data.json", cfg.Data.PublicationsFile)
}

func TestLoadRejectsUnknownCountMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  countMode: bm25\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "countMode")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}

func TestValidateServerAndLogging(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }, "rateLimit"},
		{"bad tagger", func(c *Config) { c.Indexer.Tagger = "spacy" }, "tagger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	require.NoError(t, Default().Validate())
}

func TestServerEnvOverrides(t *testing.T) {
	t.Setenv("SP_SERVER_RATE_LIMIT", "60")
	t.Setenv("SP_SERVER_ADMIN_TOKEN", "s3cret")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Server.RateLimit)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}
