// Package config loads and validates the YAML configuration file that
// drives pipeline assembly: rule directory, worker pool sizes, and the
// external store/queue connection parameters.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrBadWorkersKeyValue is returned when the workers key is a scalar
// other than the literal "auto".
var ErrBadWorkersKeyValue = errors.New("config: workers must be \"auto\" or an object with processors/feeders/loaders")

// ErrNegativeWorkers is returned when any resolved worker count is <= 0.
var ErrNegativeWorkers = errors.New("config: worker counts must be positive")

const (
	defaultYaraRuleDir  = "yara-rules/"
	defaultDBUser       = "postgres"
	defaultDBPasswd     = "infobserve"
	defaultDBName       = "infobserve"
	defaultDBHost       = "localhost"
	defaultDBPort       = 5432
	defaultRedisHost    = "localhost"
	defaultRedisPort    = 6379
	defaultScanTimeout  = 10 * time.Second
	postgresPasswdEnvar = "INFOBSERVE_POSTGRES_PASSWD"
)

// Config is the fully resolved, validated pipeline configuration.
type Config struct {
	YaraRuleDir string
	Workers     WorkersConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	ScanTimeout time.Duration
}

// DatabaseConfig holds the PostgreSQL connection parameters.
type DatabaseConfig struct {
	User   string
	Passwd string
	DBName string
	Host   string
	Port   int
}

// RedisConfig holds the external queue's connection parameters.
type RedisConfig struct {
	Host string
	Port int
}

// WorkersConfig is the resolved worker-pool sizing, always positive
// integers regardless of whether the source file specified "auto" or
// an explicit object.
type WorkersConfig struct {
	Processors int
	Feeders    int
	Loaders    int
}

// rawConfig mirrors the YAML file's literal shape before defaults are
// filled in and workers are resolved.
type rawConfig struct {
	YaraRuleDir string      `yaml:"yara_rule_dir"`
	Workers     yaml.Node   `yaml:"workers"`
	Database    rawDatabase `yaml:"database"`
	Redis       rawRedis    `yaml:"redis"`
	ScanTimeout string      `yaml:"scan_timeout"`
}

type rawDatabase struct {
	User   string `yaml:"user"`
	Passwd string `yaml:"passwd"`
	DBName string `yaml:"db_name"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

type rawRedis struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads and validates the configuration file at path, filling in
// defaults for every omitted key per the documented configuration
// surface.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	workers, err := resolveWorkers(raw.Workers)
	if err != nil {
		return nil, err
	}

	scanTimeout := defaultScanTimeout
	if raw.ScanTimeout != "" {
		scanTimeout, err = time.ParseDuration(raw.ScanTimeout)
		if err != nil {
			return nil, fmt.Errorf("config: parsing scan_timeout %q: %w", raw.ScanTimeout, err)
		}
	}

	cfg := &Config{
		YaraRuleDir: orDefault(raw.YaraRuleDir, defaultYaraRuleDir),
		Workers:     workers,
		Database: DatabaseConfig{
			User:   orDefault(raw.Database.User, defaultDBUser),
			Passwd: resolvePasswd(raw.Database.Passwd),
			DBName: orDefault(raw.Database.DBName, defaultDBName),
			Host:   orDefault(raw.Database.Host, defaultDBHost),
			Port:   orDefaultInt(raw.Database.Port, defaultDBPort),
		},
		Redis: RedisConfig{
			Host: orDefault(raw.Redis.Host, defaultRedisHost),
			Port: orDefaultInt(raw.Redis.Port, defaultRedisPort),
		},
		ScanTimeout: scanTimeout,
	}

	return cfg, nil
}

// resolveWorkers interprets the workers YAML node, which is either
// absent, the scalar "auto", or a mapping with processors/feeders/loaders
// keys, into concrete positive counts.
func resolveWorkers(node yaml.Node) (WorkersConfig, error) {
	if node.Kind == 0 {
		return autoWorkers(1), nil
	}

	if node.Kind == yaml.ScalarNode {
		if node.Value != "auto" {
			return WorkersConfig{}, ErrBadWorkersKeyValue
		}
		return autoWorkers(runtime.NumCPU()), nil
	}

	if node.Kind == yaml.MappingNode {
		var explicit struct {
			Processors *int `yaml:"processors"`
			Feeders    *int `yaml:"feeders"`
			Loaders    *int `yaml:"loaders"`
		}
		if err := node.Decode(&explicit); err != nil {
			return WorkersConfig{}, fmt.Errorf("%w: %v", ErrBadWorkersKeyValue, err)
		}
		wc := WorkersConfig{
			Processors: orDefaultIntPtr(explicit.Processors, 1),
			Feeders:    orDefaultIntPtr(explicit.Feeders, 1),
			Loaders:    orDefaultIntPtr(explicit.Loaders, 1),
		}
		if wc.Processors <= 0 || wc.Feeders <= 0 || wc.Loaders <= 0 {
			return WorkersConfig{}, ErrNegativeWorkers
		}
		return wc, nil
	}

	return WorkersConfig{}, ErrBadWorkersKeyValue
}

// autoWorkers splits n logical CPUs 50/25/25 across
// processors/feeders/loaders, each floored and clamped to at least 1.
func autoWorkers(n int) WorkersConfig {
	return WorkersConfig{
		Processors: clampPositive(int(math.Floor(0.5 * float64(n)))),
		Feeders:    clampPositive(int(math.Floor(0.25 * float64(n)))),
		Loaders:    clampPositive(int(math.Floor(0.25 * float64(n)))),
	}
}

func clampPositive(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func resolvePasswd(configured string) string {
	if configured != "" {
		return configured
	}
	return orDefault(os.Getenv(postgresPasswdEnvar), defaultDBPasswd)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// orDefaultIntPtr returns def only when v is nil (the key was absent
// from the YAML mapping). A present key, including an explicit 0, is
// passed through so the caller's validation can reject it.
func orDefaultIntPtr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
