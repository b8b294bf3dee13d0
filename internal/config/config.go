// Package config loads kata settings from a YAML file and KATA_*
// environment variables. Precedence, lowest first: defaults, file,
// environment, command-line flags (applied by the CLI).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kata/internal/adapter"
	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/runner"
	"github.com/roach88/kata/internal/suite"
)

// Config holds harness settings.
type Config struct {
	// Framework is used when a request names none.
	Framework string `yaml:"framework"`

	// Timeouts in milliseconds. AsyncTimeoutMS is an alias of
	// CaseTimeoutMS kept for older config files; CaseTimeoutMS wins.
	CaseTimeoutMS  int `yaml:"case_timeout_ms"`
	AsyncTimeoutMS int `yaml:"async_timeout_ms"`
	RunTimeoutMS   int `yaml:"run_timeout_ms"`

	Workdir string `yaml:"workdir"`
	Strict  bool   `yaml:"strict"`

	// Database is the run ledger path; empty disables recording.
	Database string `yaml:"db"`

	// MetricsFile receives Prometheus text metrics after each command.
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Framework:     adapter.CW2,
		CaseTimeoutMS: int(suite.DefaultTimeout.Milliseconds()),
		RunTimeoutMS:  int(runner.DefaultRunTimeout.Milliseconds()),
		Workdir:       jsrt.DefaultWorkdir,
	}
}

// Load returns defaults overlaid with the file at path (if non-empty) and
// then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var file Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.merge(file)
	return nil
}

// merge copies the fields set in o.
func (c *Config) merge(o Config) {
	if o.Framework != "" {
		c.Framework = o.Framework
	}
	switch {
	case o.CaseTimeoutMS != 0:
		c.CaseTimeoutMS = o.CaseTimeoutMS
	case o.AsyncTimeoutMS != 0:
		c.CaseTimeoutMS = o.AsyncTimeoutMS
	}
	if o.RunTimeoutMS != 0 {
		c.RunTimeoutMS = o.RunTimeoutMS
	}
	if o.Workdir != "" {
		c.Workdir = o.Workdir
	}
	if o.Strict {
		c.Strict = true
	}
	if o.Database != "" {
		c.Database = o.Database
	}
	if o.MetricsFile != "" {
		c.MetricsFile = o.MetricsFile
	}
}

// applyEnv overlays KATA_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	millis := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("KATA_FRAMEWORK", &c.Framework)
	str("KATA_WORKDIR", &c.Workdir)
	str("KATA_DB", &c.Database)
	str("KATA_METRICS_FILE", &c.MetricsFile)

	if err := millis("KATA_ASYNC_TIMEOUT_MS", &c.CaseTimeoutMS); err != nil {
		return err
	}
	if err := millis("KATA_CASE_TIMEOUT_MS", &c.CaseTimeoutMS); err != nil {
		return err
	}
	if err := millis("KATA_RUN_TIMEOUT_MS", &c.RunTimeoutMS); err != nil {
		return err
	}

	if v, ok := lookup("KATA_STRICT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("KATA_STRICT: %w", err)
		}
		c.Strict = b
	}
	return nil
}

// Validate rejects settings no run could use.
func (c Config) Validate() error {
	if c.Framework == "" {
		return errors.New("config: framework is empty")
	}
	if c.CaseTimeoutMS <= 0 {
		return fmt.Errorf("config: case_timeout_ms must be positive, got %d", c.CaseTimeoutMS)
	}
	if c.RunTimeoutMS <= 0 {
		return fmt.Errorf("config: run_timeout_ms must be positive, got %d", c.RunTimeoutMS)
	}
	if !strings.HasPrefix(c.Workdir, "/") {
		return fmt.Errorf("config: workdir must be absolute, got %q", c.Workdir)
	}
	return nil
}

// CaseTimeout is CaseTimeoutMS as a duration.
func (c Config) CaseTimeout() time.Duration {
	return time.Duration(c.CaseTimeoutMS) * time.Millisecond
}

// RunTimeout is RunTimeoutMS as a duration.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMS) * time.Millisecond
}
