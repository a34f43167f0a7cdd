// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/digestd/lib/digest"
	"github.com/bureau-foundation/digestd/lib/protocol"
	"github.com/bureau-foundation/digestd/lib/schedule"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "DIGESTD_CONFIG"

// Staging modes.
const (
	// StagingShared is one slot behind one gate. A producer may
	// overwrite the slot after releasing the gate and before a worker
	// has read it.
	StagingShared = "shared"

	// StagingLeased gives each in-flight job its own slot, held by a
	// lease until the worker has read it.
	StagingLeased = "leased"
)

// Config is the master configuration for digestd.
type Config struct {
	// SocketPath is the Unix socket the server listens on.
	SocketPath string `yaml:"socket_path"`

	Scheduler SchedulerConfig `yaml:"scheduler"`
	Staging   StagingConfig   `yaml:"staging"`
	Digest    DigestConfig    `yaml:"digest"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Shutdown  ShutdownConfig  `yaml:"shutdown"`
	Log       LogConfig       `yaml:"log"`
}

// SchedulerConfig configures the job queue and worker pool.
type SchedulerConfig struct {
	// Policy is "fcfs" or "sjf". Default: fcfs.
	Policy string `yaml:"policy"`

	// Workers is the initial pool size. Default: 3.
	Workers int `yaml:"workers"`
}

// StagingConfig configures the staging area.
type StagingConfig struct {
	// Path is the staging file. Lock files are created next to it.
	Path string `yaml:"path"`

	// Mode is "shared" or "leased". Default: leased.
	Mode string `yaml:"mode"`

	// SlotSize is the capacity of one slot, in bytes or with a unit
	// ("4MiB", "512 KB"). It bounds the declared length of a job.
	// Default: 4MiB.
	SlotSize string `yaml:"slot_size"`

	// Slots is the number of slots in leased mode. Shared mode always
	// uses one. Default: 4.
	Slots int `yaml:"slots"`

	// LeaseTTL is how long a reserved slot waits for its submission.
	// Default: 30s.
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

// DigestConfig selects the digest algorithm.
type DigestConfig struct {
	// Algorithm is sha256, blake3 or blake2b. Default: sha256.
	Algorithm string `yaml:"algorithm"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address is the TCP listen address for /metrics. Empty disables
	// the endpoint.
	Address string `yaml:"address"`
}

// ShutdownConfig configures the shutdown sequence.
type ShutdownConfig struct {
	// DrainTimeout is how long in-flight jobs may run after shutdown
	// begins before their workers are cancelled. Default: 10s.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// LogConfig configures the service logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`

	// Format is json or text. Default: json.
	Format string `yaml:"format"`
}

// Default returns a Config with every field set. Loading a file
// overlays it.
func Default() *Config {
	return &Config{
		SocketPath: "${XDG_RUNTIME_DIR:-/tmp}/digestd.sock",
		Scheduler: SchedulerConfig{
			Policy:  "fcfs",
			Workers: 3,
		},
		Staging: StagingConfig{
			Path:     "${XDG_RUNTIME_DIR:-/tmp}/digestd.staging",
			Mode:     StagingLeased,
			SlotSize: "4MiB",
			Slots:    4,
			LeaseTTL: 30 * time.Second,
		},
		Digest: DigestConfig{
			Algorithm: string(digest.SHA256),
		},
		Shutdown: ShutdownConfig{
			DrainTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from the file named by DIGESTD_CONFIG.
// There are no fallbacks: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a digestd config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults and expands
// variables in path fields. It does not validate; call Validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile decodes one file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder serves both once
		// comments and trailing commas are gone.
		data = jsonc.ToJSON(data)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	c.SocketPath = expandVars(c.SocketPath)
	c.Staging.Path = expandVars(c.Staging.Path)
}

// ExpandDefaults expands variables in a Config built by Default
// without loading a file.
func (c *Config) ExpandDefaults() {
	c.expandVariables()
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns from the
// environment. An unset or empty variable takes the default.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// SlotBytes returns the staging slot capacity in bytes.
func (c *Config) SlotBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.Staging.SlotSize)
	if err != nil {
		return 0, fmt.Errorf("staging.slot_size %q: %w", c.Staging.SlotSize, err)
	}
	if size == 0 || size > 1<<40 {
		return 0, fmt.Errorf("staging.slot_size %q out of range", c.Staging.SlotSize)
	}
	return int64(size), nil
}

// StagingSlots returns the number of slots the staging area has in the
// configured mode.
func (c *Config) StagingSlots() int {
	if c.Staging.Mode == StagingShared {
		return 1
	}
	return c.Staging.Slots
}

// Policy returns the parsed scheduling policy.
func (c *Config) Policy() (schedule.Policy, error) {
	return schedule.ParsePolicy(c.Scheduler.Policy)
}

// Validate checks the configuration and reports every problem.
func (c *Config) Validate() error {
	var errs []error

	if c.SocketPath == "" {
		errs = append(errs, errors.New("socket_path is required"))
	}

	if _, err := c.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.policy: %w", err))
	}
	if c.Scheduler.Workers < 1 || c.Scheduler.Workers > protocol.MaxPoolSize {
		errs = append(errs, fmt.Errorf("scheduler.workers must be between 1 and %d, got %d",
			protocol.MaxPoolSize, c.Scheduler.Workers))
	}

	if c.Staging.Path == "" {
		errs = append(errs, errors.New("staging.path is required"))
	}
	switch c.Staging.Mode {
	case StagingShared:
	case StagingLeased:
		if c.Staging.Slots < 1 {
			errs = append(errs, fmt.Errorf("staging.slots must be at least 1, got %d", c.Staging.Slots))
		}
		if c.Staging.LeaseTTL <= 0 {
			errs = append(errs, fmt.Errorf("staging.lease_ttl must be positive, got %s", c.Staging.LeaseTTL))
		}
	default:
		errs = append(errs, fmt.Errorf("staging.mode must be %q or %q, got %q",
			StagingShared, StagingLeased, c.Staging.Mode))
	}
	if _, err := c.SlotBytes(); err != nil {
		errs = append(errs, err)
	}

	if _, err := digest.ParseAlgorithm(c.Digest.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("digest.algorithm: %w", err))
	}

	if c.Shutdown.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown.drain_timeout must not be negative, got %s", c.Shutdown.DrainTimeout))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
