package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, ".thunderstruck.toml", `
rule_sets = ["rules/sponsor.yaml"]
standards_overlays = ["standards/sponsor.json"]
disabled_rules = ["TS0012"]

[severity_overrides]
TS0010 = "warning"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(c.RuleSets) != 1 || c.RuleSets[0] != "rules/sponsor.yaml" {
		t.Errorf("RuleSets = %v", c.RuleSets)
	}
	if len(c.StandardsOverlays) != 1 || c.StandardsOverlays[0] != "standards/sponsor.json" {
		t.Errorf("StandardsOverlays = %v", c.StandardsOverlays)
	}
	if c.SeverityOverrides["TS0010"] != "warning" {
		t.Errorf("SeverityOverrides = %v", c.SeverityOverrides)
	}
	if !c.Disabled()["TS0012"] {
		t.Errorf("Disabled() = %v", c.Disabled())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.toml", `rule_sets = [unterminated`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestMerge(t *testing.T) {
	base := New()
	base.RuleSets = []string{"a.yaml"}
	base.DisabledRules = []string{"TS0001"}
	base.SeverityOverrides["TS0010"] = "error"

	layer := New()
	layer.RuleSets = []string{"b.yaml"}
	layer.DisabledRules = []string{"TS0002"}
	layer.SeverityOverrides["TS0010"] = "warning"

	base.Merge(layer)

	if len(base.RuleSets) != 2 || base.RuleSets[1] != "b.yaml" {
		t.Errorf("RuleSets = %v", base.RuleSets)
	}
	if len(base.DisabledRules) != 2 {
		t.Errorf("DisabledRules = %v", base.DisabledRules)
	}
	if base.SeverityOverrides["TS0010"] != "warning" {
		t.Errorf("later layer did not win: %v", base.SeverityOverrides)
	}

	base.Merge(nil) // no-op
	if len(base.RuleSets) != 2 {
		t.Errorf("nil merge changed config: %v", base.RuleSets)
	}
}

func TestLoadFullProjectLayer(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".thunderstruck.toml", `disabled_rules = ["TS0031"]`)

	c := LoadFull(dir)
	if !c.Disabled()["TS0031"] {
		t.Errorf("project layer not applied: %v", c.DisabledRules)
	}

	// A root without a config file still yields a usable empty config.
	empty := LoadFull(t.TempDir())
	if len(empty.DisabledRules) != 0 || empty.SeverityOverrides == nil {
		t.Errorf("empty config = %+v", empty)
	}
}
