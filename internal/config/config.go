// Package config loads tool configuration from layered
// .thunderstruck.toml files: system, then home, then project root,
// later layers overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// RuleSets are extra CORE rule-set files (YAML) loaded into the
	// engine after the builtin sets.
	RuleSets []string `toml:"rule_sets"`
	// StandardsOverlays are extra standards definition files (JSON)
	// merged over the builtin CDISC metadata.
	StandardsOverlays []string `toml:"standards_overlays"`
	// DisabledRules lists CORE rule IDs to drop from results.
	DisabledRules []string `toml:"disabled_rules"`
	// SeverityOverrides remaps a rule ID to "error" or "warning".
	SeverityOverrides map[string]string `toml:"severity_overrides"`
}

func New() *Config {
	return &Config{SeverityOverrides: make(map[string]string)}
}

func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := New()
	if err := toml.Unmarshal(content, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return c, nil
}

// Merge layers other over c: list entries append, overrides replace.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	c.RuleSets = append(c.RuleSets, other.RuleSets...)
	c.StandardsOverlays = append(c.StandardsOverlays, other.StandardsOverlays...)
	c.DisabledRules = append(c.DisabledRules, other.DisabledRules...)
	for id, sev := range other.SeverityOverrides {
		c.SeverityOverrides[id] = sev
	}
}

// LoadFull assembles the effective configuration for a project root.
// Missing files at any layer are simply skipped.
func LoadFull(projectRoot string) *Config {
	c := New()

	paths := []string{
		"/usr/share/tsdt/thunderstruck.toml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config/tsdt/thunderstruck.toml"))
	}
	if projectRoot != "" {
		paths = append(paths, filepath.Join(projectRoot, ".thunderstruck.toml"))
	}

	for _, path := range paths {
		if layer, err := Load(path); err == nil {
			c.Merge(layer)
		}
	}
	return c
}

// Disabled returns the disabled rule IDs as a set.
func (c *Config) Disabled() map[string]bool {
	out := make(map[string]bool, len(c.DisabledRules))
	for _, id := range c.DisabledRules {
		out[id] = true
	}
	return out
}
