// Package config holds the single configuration structure of newsproc.
//
// Values come from defaults, then an optional YAML file, then environment
// variables. Commands apply their flags last and call Validate before use. The
// result is never mutated once components are built from it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/poiesic/newsproc/ai"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvStoreBase     = "ARTICLE_STORE_BASE"
	EnvNewsAPIKey    = "NEWS_API_KEY"
	EnvNewsAPIURL    = "NEWS_API_URL"
	EnvNewsQuery     = "NEWS_QUERY"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_MODEL"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvConcurrency   = "NEWSPROC_CONCURRENCY"
)

// IndexDir is the seen-URL index directory inside the store root.
const IndexDir = ".index"

// Config is the full newsproc configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Source  SourceConfig  `yaml:"source"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Worker  WorkerConfig  `yaml:"worker"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig locates the article store.
type StoreConfig struct {
	// Root is the directory holding the four zones.
	Root string `yaml:"root"`
	// Dedupe skips articles whose URL was enqueued before.
	Dedupe bool `yaml:"dedupe"`
	// StaleAfter is the default age for requeueing abandoned inprogress jobs.
	StaleAfter time.Duration `yaml:"staleAfter"`
}

// SourceConfig describes the news source.
type SourceConfig struct {
	BaseURL            string        `yaml:"baseUrl"`
	APIKey             string        `yaml:"apiKey"`
	Query              string        `yaml:"query"`
	MaxPages           int           `yaml:"maxPages"`
	PageSize           int           `yaml:"pageSize"`
	Attachments        bool          `yaml:"attachments"`
	MaxAttachmentBytes int64         `yaml:"maxAttachmentBytes"`
	Timeout            time.Duration `yaml:"timeout"`
}

// OracleConfig describes the language model endpoint.
type OracleConfig struct {
	Host        string        `yaml:"host"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// WorkerConfig tunes the enrichment worker.
type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	MaxAttempts int           `yaml:"maxAttempts"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
}

// MetricsConfig enables the metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	oracle := ai.DefaultConfig()
	return &Config{
		Store: StoreConfig{
			Root:       "article_store",
			StaleAfter: time.Hour,
		},
		Source: SourceConfig{
			BaseURL:            "https://newsapi.org/v2/everything",
			Query:              "bitcoin",
			MaxPages:           1,
			PageSize:           20,
			MaxAttachmentBytes: 5 << 20,
			Timeout:            30 * time.Second,
		},
		Oracle: OracleConfig{
			Host:        oracle.Host,
			Model:       oracle.Model,
			Temperature: oracle.Temperature,
			MaxTokens:   oracle.MaxTokens,
			CallTimeout: oracle.CallTimeout,
		},
		Worker: WorkerConfig{
			Concurrency: 1,
			MaxAttempts: 3,
			RetryDelay:  time.Second,
		},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(c)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvStoreBase, &c.Store.Root)
	str(EnvNewsAPIKey, &c.Source.APIKey)
	str(EnvNewsAPIURL, &c.Source.BaseURL)
	str(EnvNewsQuery, &c.Source.Query)
	str(EnvOpenAIKey, &c.Oracle.APIKey)
	str(EnvOpenAIModel, &c.Oracle.Model)
	str(EnvOpenAIBaseURL, &c.Oracle.Host)

	if v, ok := lookup(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		c.Worker.Concurrency = n
	}
	return nil
}

// Validate checks every limit and the oracle settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Root == "" {
		errs = append(errs, errors.New("store.root is required"))
	}
	if c.Store.StaleAfter <= 0 {
		errs = append(errs, errors.New("store.staleAfter must be positive"))
	}
	if c.Source.MaxPages < 1 {
		errs = append(errs, errors.New("source.maxPages must be positive"))
	}
	if c.Source.PageSize < 1 {
		errs = append(errs, errors.New("source.pageSize must be positive"))
	}
	if c.Source.MaxAttachmentBytes < 0 {
		errs = append(errs, errors.New("source.maxAttachmentBytes cannot be negative"))
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, errors.New("source.timeout must be positive"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("worker.concurrency must be positive"))
	}
	if c.Worker.MaxAttempts < 1 {
		errs = append(errs, errors.New("worker.maxAttempts must be positive"))
	}
	if c.Worker.RetryDelay < 0 {
		errs = append(errs, errors.New("worker.retryDelay cannot be negative"))
	}
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AIConfig converts the oracle section to an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.Oracle.Host),
		ai.WithModel(c.Oracle.Model),
		ai.WithAPIKey(c.Oracle.APIKey),
		ai.WithTemperature(c.Oracle.Temperature),
		ai.WithMaxTokens(c.Oracle.MaxTokens),
		ai.WithCallTimeout(c.Oracle.CallTimeout),
	)
}

// IndexPath is the location of the seen-URL index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Store.Root, IndexDir)
}
