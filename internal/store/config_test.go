package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	withEnv(t, "DAYGRID_CONFIG_DIR", cfgDir, func() {
		if err := SaveConfig(&GlobalConfig{CurrentWorkspace: "seed"}); err != nil {
			t.Fatalf("SaveConfig(seed): %v", err)
		}

		const n = 32
		errCh := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				cfg, err := LoadConfig()
				if err != nil {
					errCh <- err
					return
				}
				cfg.CurrentWorkspace = fmt.Sprintf("ws-%d", i)
				cfg.SnapMinutes = 5 + i
				if err := SaveConfig(cfg); err != nil {
					errCh <- err
				}
			}(i)
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			t.Errorf("concurrent SaveConfig: %v", err)
		}
		if t.Failed() {
			return
		}

		path, err := ConfigPath()
		if err != nil {
			t.Fatalf("ConfigPath: %v", err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read config.json: %v", err)
		}
		var cfg GlobalConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			t.Fatalf("config.json corrupted/unparseable: %v\nraw:\n%s", err, string(raw))
		}

		ents, _ := os.ReadDir(filepath.Dir(path))
		for _, e := range ents {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Fatalf("left temp file behind: %s", e.Name())
			}
		}
	})
}

func TestGlobalConfig_Defaults(t *testing.T) {
	var cfg *GlobalConfig
	if cfg.EffectiveHourHeight() != DefaultHourHeight || cfg.EffectiveSnapMinutes() != DefaultSnapMinutes {
		t.Fatalf("nil config should fall back to defaults")
	}
	cfg = &GlobalConfig{HourHeight: 48, TUI: &TUIConfig{RowsPerHour: 2}}
	if cfg.EffectiveHourHeight() != 48 || cfg.EffectiveRowsPerHour() != 2 {
		t.Fatalf("expected overrides to win")
	}
	if cfg.EffectiveDayMinimumHeight() != DefaultDayMinimumHeight || cfg.EffectiveWeekMinimumHeight() != DefaultWeekMinimumHeight {
		t.Fatalf("expected minimum height defaults")
	}
}

func TestGlobalConfig_WeekdayAndLocation(t *testing.T) {
	cfg := &GlobalConfig{WeekStart: "Mon", Timezone: "UTC"}
	wd, err := cfg.Weekday()
	if err != nil || wd != time.Monday {
		t.Fatalf("expected monday, got %v (%v)", wd, err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
	if _, err := (&GlobalConfig{WeekStart: "funday"}).Weekday(); err == nil {
		t.Fatalf("expected invalid weekday error")
	}
	if _, err := (&GlobalConfig{Timezone: "Not/AZone"}).Location(); err == nil {
		t.Fatalf("expected invalid timezone error")
	}
}

func TestWorkspaceDir_UsesConfigDir(t *testing.T) {
	cfgDir := t.TempDir()
	withEnv(t, "DAYGRID_CONFIG_DIR", cfgDir, func() {
		dir, err := WorkspaceDir("work")
		if err != nil {
			t.Fatalf("WorkspaceDir: %v", err)
		}
		if dir != filepath.Join(cfgDir, "workspaces", "work") {
			t.Fatalf("unexpected dir %q", dir)
		}
		if _, err := WorkspaceDir("../escape"); err == nil {
			t.Fatalf("expected invalid workspace name error")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		names, err := ListWorkspaces()
		if err != nil || len(names) != 1 || names[0] != "work" {
			t.Fatalf("expected [work], got %v (%v)", names, err)
		}
	})
}
