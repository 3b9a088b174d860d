package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/csheth/leafscan/internal/errors"
)

const (
	DefaultAnalyzeURL = "http://localhost:8000/analyze"
	DefaultDetailURL  = "http://localhost:8000/rag"
	DefaultTimeout    = 2 * time.Minute
)

const (
	EnvAnalyzeURL = "LEAFSCAN_ANALYZE_URL"
	EnvDetailURL  = "LEAFSCAN_DETAIL_URL"
	EnvTimeout    = "LEAFSCAN_TIMEOUT"
	EnvExportDir  = "LEAFSCAN_EXPORT_DIR"
)

// Config holds everything the client needs beyond the image itself.
type Config struct {
	AnalyzeURL string        `yaml:"analyze_url"`
	DetailURL  string        `yaml:"detail_url"`
	Timeout    time.Duration `yaml:"timeout"`
	ExportDir  string        `yaml:"export_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AnalyzeURL: DefaultAnalyzeURL,
		DetailURL:  DefaultDetailURL,
		Timeout:    DefaultTimeout,
		ExportDir:  "leafscan-reports",
	}
}

// Loader resolves configuration from a YAML file, a .env file and the
// process environment, in increasing order of precedence.
type Loader struct {
	useDotEnv bool
	path      string
	lookup    func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookup:    os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading the environment.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithFile sets an optional YAML file. A missing file is an error only when a
// path was given explicitly.
func (l *Loader) WithFile(path string) *Loader {
	l.path = strings.TrimSpace(path)
	return l
}

// WithLookup overrides environment lookup (useful for tests).
func (l *Loader) WithLookup(fn func(string) (string, bool)) *Loader {
	if fn != nil {
		l.lookup = fn
	}
	return l
}

func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return Config{}, apperrors.Wrap(apperrors.KindConfig, "config.load", "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, apperrors.Wrap(apperrors.KindConfig, "config.load", "failed to parse config file", err)
		}
	}

	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			log.Printf("[config] no .env file loaded: %v", err)
		}
	}

	if v, ok := l.env(EnvAnalyzeURL); ok {
		cfg.AnalyzeURL = v
	}
	if v, ok := l.env(EnvDetailURL); ok {
		cfg.DetailURL = v
	}
	if v, ok := l.env(EnvExportDir); ok {
		cfg.ExportDir = v
	}
	if v, ok := l.env(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, apperrors.Wrap(apperrors.KindConfig, "config.load", fmt.Sprintf("invalid %s", EnvTimeout), err)
		}
		cfg.Timeout = d
	}

	return cfg, cfg.Validate()
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate rejects endpoints that are not absolute http(s) URLs and
// non-positive timeouts.
func (c Config) Validate() error {
	for name, raw := range map[string]string{"analyze_url": c.AnalyzeURL, "detail_url": c.DetailURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.New(apperrors.KindConfig, "config.validate", fmt.Sprintf("%s must be an http(s) URL, got %q", name, raw))
		}
	}
	if c.Timeout <= 0 {
		return apperrors.New(apperrors.KindConfig, "config.validate", "timeout must be positive")
	}
	return nil
}
