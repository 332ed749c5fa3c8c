// Package config loads and validates the harness configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "embed"

	"github.com/goccy/go-yaml"

	"github.com/canonical/ceph-bench/internal/execution"
)

// Config mirrors the YAML configuration shape.
type Config struct {
	Harness Harness                   `yaml:"harness" json:"harness"`
	Deploy  Deploy                    `yaml:"deploy" json:"deploy"`
	Run     Run                       `yaml:"run" json:"run"`
	Vault   Vault                     `yaml:"vault,omitempty" json:"vault,omitempty"`
	Hosts   map[string]execution.Host `yaml:"hosts,omitempty" json:"hosts,omitempty"`
}

// Harness holds top-level harness settings.
type Harness struct {
	// OutputDir is the directory where per-run results are stored.
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	// Logging configuration; logs go to stdout when no path is set.
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// LoggingConfig holds the logging configuration.
type LoggingConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Deploy holds the deployment defaults; CLI flags override them.
type Deploy struct {
	// Model is the model to deploy to; empty means a generated name.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`
	// WoodpeckerCharm is the path to the woodpecker charm.
	WoodpeckerCharm string `yaml:"woodpecker_charm,omitempty" json:"woodpecker_charm,omitempty"`
	NumOSDs         int    `yaml:"num_osds,omitempty" json:"num_osds,omitempty"`
	Channel         string `yaml:"channel,omitempty" json:"channel,omitempty"`
	Series          string `yaml:"series,omitempty" json:"series,omitempty"`
	Storage         string `yaml:"storage,omitempty" json:"storage,omitempty"`
	Constraints     string `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	PPA             string `yaml:"ppa,omitempty" json:"ppa,omitempty"`
	Rados           bool   `yaml:"rados,omitempty" json:"rados,omitempty"`
}

// Run holds benchmark invocation settings.
type Run struct {
	// Unit is the load-generation unit actions are invoked on.
	Unit string `yaml:"unit,omitempty" json:"unit,omitempty"`
	// Application is the application the action schema is fetched from.
	Application string `yaml:"application,omitempty" json:"application,omitempty"`
	// Timeout bounds one benchmark invocation.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// AgentPath is the benchmark wrapper executed on a host in direct
	// mode (run --host).
	AgentPath string `yaml:"agent_path,omitempty" json:"agent_path,omitempty"`
	// AgentSource is a local copy of the benchmark wrapper. When set,
	// it is uploaded to AgentPath on the host before the run.
	AgentSource string `yaml:"agent_source,omitempty" json:"agent_source,omitempty"`
	// Collect is a remote file the benchmark tool writes, fetched into
	// the run directory after a direct-mode run.
	Collect string `yaml:"collect,omitempty" json:"collect,omitempty"`
}

// Vault holds settings for the secret-store bootstrap runbook.
type Vault struct {
	Application     string `yaml:"application,omitempty" json:"application,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty" json:"credentials_file,omitempty"`
	KeyShares       int    `yaml:"key_shares,omitempty" json:"key_shares,omitempty"`
	KeyThreshold    int    `yaml:"key_threshold,omitempty" json:"key_threshold,omitempty"`
}

// ParseYAML loads and validates configuration using strict decoding, then
// fills in defaults for everything left unset.
func ParseYAML(data []byte) (*Config, error) {
	var config Config
	if err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict()); err != nil {
		return nil, err
	}
	applyDefaults(&config)
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := ParseYAML(defaultConfigFile)
	if err != nil {
		// The embedded default must always parse.
		panic(err)
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Harness.OutputDir == "" {
		cfg.Harness.OutputDir = "./results"
	}
	if cfg.Deploy.NumOSDs == 0 {
		cfg.Deploy.NumOSDs = 3
	}
	if cfg.Deploy.Channel == "" {
		cfg.Deploy.Channel = "latest/edge"
	}
	if cfg.Deploy.Series == "" {
		cfg.Deploy.Series = "jammy"
	}
	if cfg.Run.Unit == "" {
		cfg.Run.Unit = "woodpecker/0"
	}
	if cfg.Run.Application == "" {
		cfg.Run.Application = "woodpecker"
	}
	if cfg.Run.Timeout == "" {
		cfg.Run.Timeout = "30m"
	}
	if cfg.Run.AgentPath == "" {
		cfg.Run.AgentPath = "/usr/local/bin/woodpecker-bench"
	}
	if cfg.Vault.Application == "" {
		cfg.Vault.Application = "vault"
	}
	if cfg.Vault.CredentialsFile == "" {
		cfg.Vault.CredentialsFile = "vault-credentials.json"
	}
	if cfg.Vault.KeyShares == 0 {
		cfg.Vault.KeyShares = 1
	}
	if cfg.Vault.KeyThreshold == 0 {
		cfg.Vault.KeyThreshold = 1
	}
}

func validateConfig(cfg *Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Harness.OutputDir) == "" {
		errs = append(errs, "harness.output_dir must be set")
	}
	if cfg.Deploy.NumOSDs < 1 {
		errs = append(errs, "deploy.num_osds must be at least 1")
	}
	if d, err := time.ParseDuration(cfg.Run.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Sprintf("run.timeout %q must be a positive duration", cfg.Run.Timeout))
	}
	if !strings.Contains(cfg.Run.Unit, "/") {
		errs = append(errs, fmt.Sprintf("run.unit %q must be of the form application/number", cfg.Run.Unit))
	}

	for alias, host := range cfg.Hosts {
		if strings.TrimSpace(alias) == "" {
			errs = append(errs, "hosts: alias must not be empty")
		}
		if strings.TrimSpace(host.IP) == "" {
			errs = append(errs, fmt.Sprintf("hosts.%s.ip must be set", alias))
		}
		if host.KeyFile == "" && host.Password == "" {
			errs = append(errs, fmt.Sprintf("hosts.%s needs key_file or password", alias))
		}
	}

	if cfg.Vault.KeyThreshold > cfg.Vault.KeyShares {
		errs = append(errs, "vault.key_threshold must not exceed vault.key_shares")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Timeout returns the parsed run timeout. Call after validation.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Run.Timeout)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

//go:embed default_cephbench.yaml
var defaultConfigFile []byte
