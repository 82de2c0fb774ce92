// Package config provides configuration loading and management for Guardian.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Guardian configuration
type Config struct {
	Repo     RepoConfig     `yaml:"repo"`
	Signals  SignalsConfig  `yaml:"signals"`
	Cases    CasesConfig    `yaml:"cases"`
	Proposal ProposalConfig `yaml:"proposal"`
	Schemas  SchemasConfig  `yaml:"schemas"`
}

// RepoConfig configures the repository settings
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty)
	Path string `yaml:"path"`
	// BaseBranch is the branch proposals are cut from (empty = remote default)
	BaseBranch string `yaml:"base_branch"`
}

// SignalsConfig configures signal discovery
type SignalsConfig struct {
	// Dir is the directory watched for signal documents
	Dir string `yaml:"dir"`
	// Globs identify signal documents among changed files
	Globs []string `yaml:"globs"`
}

// CasesConfig configures the generated care-case store
type CasesConfig struct {
	// Dir is the directory care-case records are written to
	Dir string `yaml:"dir"`
}

// ProposalConfig configures patch proposal branches and pull requests
type ProposalConfig struct {
	// BotName is the committer name for proposal commits
	BotName string `yaml:"bot_name"`
	// BotEmail is the committer email for proposal commits
	BotEmail string `yaml:"bot_email"`
	// Labels are applied to created pull requests
	Labels []string `yaml:"labels"`
}

// SchemasConfig overrides the embedded JSON schemas
type SchemasConfig struct {
	// SignalPath is an override for the signal schema (empty = embedded)
	SignalPath string `yaml:"signal_path"`
	// CareCasePath is an override for the care-case schema (empty = embedded)
	CareCasePath string `yaml:"care_case_path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path:       "", // Auto-detect
			BaseBranch: "", // Ask the remote
		},
		Signals: SignalsConfig{
			Dir: "signals",
			Globs: []string{
				"signals/**/*.json",
				"examples/signal.*.json",
			},
		},
		Cases: CasesConfig{
			Dir: "generated",
		},
		Proposal: ProposalConfig{
			BotName:  "guardian-bot",
			BotEmail: "guardian-bot@users.noreply.github.com",
			Labels:   []string{"guardian", "auto-proposal"},
		},
		Schemas: SchemasConfig{},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Signals.Dir == "" {
		return fmt.Errorf("signals.dir is required")
	}
	if len(c.Signals.Globs) == 0 {
		return fmt.Errorf("signals.globs must list at least one pattern")
	}
	if c.Cases.Dir == "" {
		return fmt.Errorf("cases.dir is required")
	}
	if c.Proposal.BotName == "" {
		return fmt.Errorf("proposal.bot_name is required")
	}
	if c.Proposal.BotEmail == "" {
		return fmt.Errorf("proposal.bot_email is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Repo
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}
	if other.Repo.BaseBranch != "" {
		c.Repo.BaseBranch = other.Repo.BaseBranch
	}

	// Signals
	if other.Signals.Dir != "" {
		c.Signals.Dir = other.Signals.Dir
	}
	if len(other.Signals.Globs) > 0 {
		c.Signals.Globs = other.Signals.Globs
	}

	// Cases
	if other.Cases.Dir != "" {
		c.Cases.Dir = other.Cases.Dir
	}

	// Proposal
	if other.Proposal.BotName != "" {
		c.Proposal.BotName = other.Proposal.BotName
	}
	if other.Proposal.BotEmail != "" {
		c.Proposal.BotEmail = other.Proposal.BotEmail
	}
	if len(other.Proposal.Labels) > 0 {
		c.Proposal.Labels = other.Proposal.Labels
	}

	// Schemas
	if other.Schemas.SignalPath != "" {
		c.Schemas.SignalPath = other.Schemas.SignalPath
	}
	if other.Schemas.CareCasePath != "" {
		c.Schemas.CareCasePath = other.Schemas.CareCasePath
	}
}
