// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"testing"

	"github.com/mvbarbosa/tradewatch-tui/internal/config"
)

// sandboxConfig points the config directory at a throwaway home and clears
// any ambient overrides.
func sandboxConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TRADEWATCH_API_URL", "")
	t.Setenv("TRADEWATCH_CHECK_INTERVAL", "")
	t.Setenv("TRADEWATCH_EXPIRY_WARN_DAYS", "")
	t.Setenv("TRADEWATCH_THEME", "")
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)
}

func TestApplyConfigKey(t *testing.T) {
	cfg := config.Default()

	if err := applyConfigKey(cfg, "session.expiry_warn_days", "12"); err != nil {
		t.Fatalf("applyConfigKey: %v", err)
	}
	if cfg.Session.ExpiryWarnDays != 12 {
		t.Errorf("warn days = %d, want 12", cfg.Session.ExpiryWarnDays)
	}

	if err := applyConfigKey(cfg, "ui.theme", "Light"); err != nil {
		t.Fatalf("applyConfigKey: %v", err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q, want lowercased", cfg.UI.Theme)
	}

	if err := applyConfigKey(cfg, "ui.compact_mode", "true"); err != nil {
		t.Fatalf("applyConfigKey: %v", err)
	}
	if !cfg.UI.CompactMode {
		t.Error("compact mode not set")
	}

	if err := applyConfigKey(cfg, "session.expiry_warn_days", "soon"); err == nil {
		t.Error("non-numeric value should be rejected")
	}
	if err := applyConfigKey(cfg, "session.nonsense", "1"); err == nil {
		t.Error("unknown key should be rejected")
	}
}

func TestConfigSetPersistsAndValidates(t *testing.T) {
	sandboxConfig(t)

	if err := configSet("session.expiry_warn_days", "12"); err != nil {
		t.Fatalf("configSet failed: %v", err)
	}

	path, err := config.ConfigPathTOML()
	if err != nil {
		t.Fatalf("ConfigPathTOML: %v", err)
	}
	loaded, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load back: %v", err)
	}
	if loaded.Session.ExpiryWarnDays != 12 {
		t.Errorf("persisted warn days = %d, want 12", loaded.Session.ExpiryWarnDays)
	}
	if got := config.Global().Session.ExpiryWarnDays; got != 12 {
		t.Errorf("in-process warn days = %d, want 12", got)
	}

	// A value the config layer rejects never reaches disk.
	if err := configSet("session.check_interval_secs", "5"); err == nil {
		t.Error("invalid value should be rejected")
	}
	loaded, err = config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load back: %v", err)
	}
	if loaded.Session.CheckIntervalSecs == 5 {
		t.Error("rejected value was persisted")
	}
}

func TestConfigSetKeepsJSONFormat(t *testing.T) {
	sandboxConfig(t)

	jsonPath, err := config.ConfigPathJSON()
	if err != nil {
		t.Fatalf("ConfigPathJSON: %v", err)
	}
	if err := config.EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir: %v", err)
	}
	if err := os.WriteFile(jsonPath, []byte(`{"ui": {"theme": "light"}}`), 0600); err != nil {
		t.Fatalf("seed json config: %v", err)
	}
	config.ResetGlobalForTesting()

	if err := configSet("ui.theme", "dark"); err != nil {
		t.Fatalf("configSet failed: %v", err)
	}

	loaded, err := config.LoadFromPath(jsonPath)
	if err != nil {
		t.Fatalf("load back: %v", err)
	}
	if loaded.UI.Theme != "dark" {
		t.Errorf("persisted theme = %q, want dark", loaded.UI.Theme)
	}

	// The edit must not have switched the file format.
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		t.Fatalf("ConfigPathTOML: %v", err)
	}
	if _, err := os.Stat(tomlPath); err == nil {
		t.Error("config set created a TOML file next to the JSON one")
	}
}
