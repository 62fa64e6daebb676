// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestWatcherAppliesEditedConfig edits the config file on disk and waits for
// the reload callback to surface the new session values.
func TestWatcherAppliesEditedConfig(t *testing.T) {
	// ConfigDir derives from the home directory; point it at a sandbox so
	// the test never touches a real config.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TRADEWATCH_CHECK_INTERVAL", "")
	t.Setenv("TRADEWATCH_EXPIRY_WARN_DAYS", "")
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(func(fresh *Config) {
		select {
		case reloaded <- fresh:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	path, err := ConfigPathTOML()
	if err != nil {
		t.Fatalf("ConfigPathTOML failed: %v", err)
	}
	content := `
[session]
check_interval_secs = 60
expiry_warn_days = 3
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	select {
	case fresh := <-reloaded:
		if fresh.Session.ExpiryWarnDays != 3 {
			t.Errorf("reloaded warn days = %d, want 3", fresh.Session.ExpiryWarnDays)
		}
		if fresh.Session.CheckIntervalSecs != 60 {
			t.Errorf("reloaded check interval = %d, want 60", fresh.Session.CheckIntervalSecs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config edit never triggered a reload")
	}

	if got := Global().Session.ExpiryWarnDays; got != 3 {
		t.Errorf("global warn days = %d, want 3", got)
	}
}

// TestWatcherKeepsLastGoodConfigOnBadEdit writes a config that fails
// validation and checks the previous global survives.
func TestWatcherKeepsLastGoodConfigOnBadEdit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TRADEWATCH_CHECK_INTERVAL", "")
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	good := Default()
	good.Session.ExpiryWarnDays = 10
	SetGlobal(good)

	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir failed: %v", err)
	}
	bad := `
[session]
check_interval_secs = 1
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(bad), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Give the debounce window time to elapse and the reload to be
	// attempted (and rejected).
	time.Sleep(watchDebounce + 500*time.Millisecond)

	if got := Global().Session.ExpiryWarnDays; got != 10 {
		t.Errorf("bad edit replaced the global config (warn days = %d, want 10)", got)
	}
}
