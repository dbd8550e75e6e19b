// Package config loads bk settings from a YAML file, a .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/bukkaku/internal/flyer"
	"github.com/evcraddock/bukkaku/internal/match"
	"github.com/evcraddock/bukkaku/internal/platform"
	"github.com/evcraddock/bukkaku/internal/verify"
)

// Config is the full bk configuration.
type Config struct {
	DB           string       `yaml:"db"`
	Dev          bool         `yaml:"dev"`
	Server       Server       `yaml:"server"`
	Flyer        Flyer        `yaml:"flyer"`
	Matching     match.Policy `yaml:"matching"`
	Verification Verification `yaml:"verification"`
	Platforms    []Platform   `yaml:"platforms"`
}

// Server configures bk serve.
type Server struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Flyer limits document intake.
type Flyer struct {
	MaxBytes int `yaml:"max_bytes"`
}

// Verification tunes how sites are checked.
type Verification struct {
	AdapterTimeout  time.Duration `yaml:"adapter_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RequestInterval time.Duration `yaml:"request_interval"`
	Parallel        int           `yaml:"parallel"`
	TopN            int           `yaml:"top_n"`
	UserAgent       string        `yaml:"user_agent"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server:   Server{Port: 8080},
		Flyer:    Flyer{MaxBytes: flyer.DefaultMaxBytes},
		Matching: match.DefaultPolicy(),
		Verification: Verification{
			AdapterTimeout:  verify.DefaultAdapterTimeout,
			RequestTimeout:  15 * time.Second,
			RequestInterval: 2 * time.Second,
			Parallel:        verify.DefaultParallel,
			TopN:            platform.DefaultTopN,
			UserAgent:       "Mozilla/5.0 (compatible; bukkaku)",
		},
	}
}

// DefaultPath returns ~/.config/bk/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bk", "config.yaml"), nil
}

// LoadEnv reads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the config file at path, applies BK_* environment overrides
// and validates the result. An empty path means the default location, which
// may be absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BK_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("BK_DEV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BK_DEV: %w", err)
		}
		c.Dev = b
	}
	if v := os.Getenv("BK_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BK_THRESHOLD: %w", err)
		}
		c.Matching.Threshold = f
	}
	if v := os.Getenv("BK_ADAPTER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BK_ADAPTER_TIMEOUT: %w", err)
		}
		c.Verification.AdapterTimeout = d
	}
	return nil
}

// Validate checks the scoring policy, verification limits and platforms.
func (c *Config) Validate() error {
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}

	v := c.Verification
	if v.AdapterTimeout <= 0 {
		return errors.New("verification.adapter_timeout must be positive")
	}
	if v.RequestInterval < 0 {
		return errors.New("verification.request_interval must not be negative")
	}
	if v.Parallel < 1 {
		return errors.New("verification.parallel must be at least 1")
	}
	if v.TopN < 1 {
		return errors.New("verification.top_n must be at least 1")
	}

	seen := make(map[string]bool)
	for i, p := range c.Platforms {
		if p.Name == "" {
			return fmt.Errorf("platforms[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("platforms[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true

		if !platform.KnownKind(p.Kind) {
			return fmt.Errorf("platform %s: unknown kind %q", p.Name, p.Kind)
		}
		if p.Kind != platform.KindSimulated && p.BaseURL == "" && p.LoginURL == "" {
			return fmt.Errorf("platform %s: base_url or login_url is required", p.Name)
		}
	}
	return nil
}

// Scorer builds the match scorer for the configured policy.
func (c *Config) Scorer() *match.Scorer {
	return match.NewScorer(c.Matching)
}

// Shared builds the runtime state shared by all adapters.
func (c *Config) Shared() platform.Shared {
	return platform.Shared{
		Scorer:         c.Scorer(),
		Limiter:        platform.NewHostLimiter(c.Verification.RequestInterval),
		TopN:           c.Verification.TopN,
		RequestTimeout: c.Verification.RequestTimeout,
		UserAgent:      c.Verification.UserAgent,
	}
}

// VerifyOptions returns the orchestrator options.
func (c *Config) VerifyOptions() verify.Options {
	return verify.Options{
		AdapterTimeout: c.Verification.AdapterTimeout,
		Parallel:       c.Verification.Parallel,
	}
}

// Adapters resolves credentials and builds an adapter per platform, in
// configuration order.
func (c *Config) Adapters() ([]platform.Adapter, error) {
	specs := make([]platform.Spec, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		spec, err := p.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return platform.NewAll(specs, c.Shared())
}

// Save writes c to path, creating the directory. An existing file is
// replaced.
func Save(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
