package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const feedsFileName = "feeds.yaml"

// Feed is one ICS subscription imported into a calendar.
type Feed struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS endpoint (http(s) URL or local path).
	URL string `yaml:"url" json:"url"`
	// Calendar is the target calendar id or label.
	Calendar string `yaml:"calendar" json:"calendar"`
}

type FeedsFile struct {
	// Refresh is a cron spec used by `daygrid web` to re-sync feeds.
	Refresh string `yaml:"refresh,omitempty" json:"refresh,omitempty"`
	// HorizonDays bounds recurrence expansion into the future.
	HorizonDays int    `yaml:"horizon_days,omitempty" json:"horizonDays,omitempty"`
	Feeds       []Feed `yaml:"feeds" json:"feeds"`
}

// Normalize fills in defaults so partially written files still behave.
func (f *FeedsFile) Normalize() {
	if strings.TrimSpace(f.Refresh) == "" {
		f.Refresh = "*/15 * * * *"
	}
	if f.HorizonDays <= 0 {
		f.HorizonDays = 30
	}
	if f.Feeds == nil {
		f.Feeds = []Feed{}
	}
	for i := range f.Feeds {
		if strings.TrimSpace(f.Feeds[i].ID) == "" {
			f.Feeds[i].ID = fmt.Sprintf("feed-%d", i+1)
		}
		if strings.TrimSpace(f.Feeds[i].Calendar) == "" {
			f.Feeds[i].Calendar = DefaultCalendarID
		}
	}
}

func (f *FeedsFile) Find(id string) (*Feed, bool) {
	for i := range f.Feeds {
		if f.Feeds[i].ID == id {
			return &f.Feeds[i], true
		}
	}
	return nil, false
}

func (s Store) feedsPath() string {
	return filepath.Join(s.Dir, feedsFileName)
}

// LoadFeeds reads feeds.yaml; a missing file yields an empty, normalized list.
func (s Store) LoadFeeds() (*FeedsFile, error) {
	out := &FeedsFile{}
	data, err := os.ReadFile(s.feedsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			out.Normalize()
			return out, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", feedsFileName, err)
	}
	out.Normalize()
	return out, nil
}

func (s Store) SaveFeeds(f *FeedsFile) error {
	if f == nil {
		return errors.New("nil feeds")
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	f.Normalize()
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.Dir, feedsFileName+".*.tmp", s.feedsPath(), data, 0o600)
}
