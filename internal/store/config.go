package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	DefaultHourHeight        = 64
	DefaultSnapMinutes       = 15
	DefaultDayMinimumHeight  = 36
	DefaultWeekMinimumHeight = 32
	DefaultRowsPerHour       = 4
)

type GlobalConfig struct {
	CurrentWorkspace string `json:"currentWorkspace,omitempty"`

	// Timezone is an IANA name used to interpret dates given on the command line.
	// Empty means the local zone.
	Timezone string `json:"timezone,omitempty"`
	// WeekStart is a weekday name ("sunday", "monday", ...). Empty means sunday.
	WeekStart string `json:"weekStart,omitempty"`

	HourHeight        float64 `json:"hourHeight,omitempty"`
	SnapMinutes       int     `json:"snapMinutes,omitempty"`
	DayMinimumHeight  float64 `json:"dayMinimumHeight,omitempty"`
	WeekMinimumHeight float64 `json:"weekMinimumHeight,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// RowsPerHour is the terminal-grid scale (rows per hour of the day view).
	RowsPerHour int `json:"rowsPerHour,omitempty"`
	// Theme selects a color theme ("default", "mono").
	Theme string `json:"theme,omitempty"`
	// Mouse disables mouse capture when set to false.
	Mouse *bool `json:"mouse,omitempty"`
}

func (c *GlobalConfig) Location() (*time.Location, error) {
	if c == nil || strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return nil, fmt.Errorf("config timezone: %w", err)
	}
	return loc, nil
}

func (c *GlobalConfig) Weekday() (time.Weekday, error) {
	if c == nil || strings.TrimSpace(c.WeekStart) == "" {
		return time.Sunday, nil
	}
	return ParseWeekday(c.WeekStart)
}

func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", s)
}

func (c *GlobalConfig) EffectiveHourHeight() float64 {
	if c == nil || c.HourHeight <= 0 {
		return DefaultHourHeight
	}
	return c.HourHeight
}

func (c *GlobalConfig) EffectiveSnapMinutes() int {
	if c == nil || c.SnapMinutes <= 0 {
		return DefaultSnapMinutes
	}
	return c.SnapMinutes
}

func (c *GlobalConfig) EffectiveDayMinimumHeight() float64 {
	if c == nil || c.DayMinimumHeight <= 0 {
		return DefaultDayMinimumHeight
	}
	return c.DayMinimumHeight
}

func (c *GlobalConfig) EffectiveWeekMinimumHeight() float64 {
	if c == nil || c.WeekMinimumHeight <= 0 {
		return DefaultWeekMinimumHeight
	}
	return c.WeekMinimumHeight
}

func (c *GlobalConfig) EffectiveRowsPerHour() int {
	if c == nil || c.TUI == nil || c.TUI.RowsPerHour <= 0 {
		return DefaultRowsPerHour
	}
	return c.TUI.RowsPerHour
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.daygrid).
	if v := strings.TrimSpace(os.Getenv("DAYGRID_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".daygrid"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Unique temp name per writer: the CLI, TUI and web server may save concurrently.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

func NormalizeWorkspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("workspace name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid workspace name %q", name)
	}
	return name, nil
}

func ListWorkspaces() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	out := []string{}
	ents, err := os.ReadDir(filepath.Join(dir, "workspaces"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}
	for _, e := range ents {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
