// Package config loads environment-sourced configuration. The token and
// the blog index id are fatal preconditions: generation steps must not run
// without them.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AureliusIvan/notion-blog/internal/notion"
)

// Config holds everything sourced from the environment
type Config struct {
	Token        string
	CollectionID string // root blog index collection
	ViewID       string
	APIEndpoint  string
	DataDir      string
	IndexTTL     time.Duration
	PageTTL      time.Duration
}

// Load reads .env (if present) and the process environment. Missing
// required variables are reported together in one error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Token:        os.Getenv("NOTION_TOKEN"),
		CollectionID: os.Getenv("BLOG_INDEX_ID"),
		ViewID:       envOrDefault("BLOG_INDEX_VIEW_ID", "default"),
		APIEndpoint:  envOrDefault("NOTION_API_ENDPOINT", notion.DefaultAPIEndpoint),
		DataDir:      envOrDefault("DATA_DIR", "./data"),
		IndexTTL:     durationOrDefault("INDEX_TTL", 30*time.Second),
		PageTTL:      durationOrDefault("PAGE_TTL", 2*time.Minute),
	}

	var missing []string
	if cfg.Token == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if cfg.CollectionID == "" {
		missing = append(missing, "BLOG_INDEX_ID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// DBPath is the SQLite snapshot location under the data dir
func (c *Config) DBPath() string {
	return c.DataDir + "/blog.db"
}

// IndexPath is the Bleve index location under the data dir
func (c *Config) IndexPath() string {
	return c.DataDir + "/bleve"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOrDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
