// Package storage caches the raw heartbeats of completed days on disk so that
// repeated analyses of past months do not hit the API again.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tiliavir/wakalyze/internal/calendar"
	"github.com/Tiliavir/wakalyze/internal/logging"
	"github.com/Tiliavir/wakalyze/internal/model"
)

// ErrCorrupt is returned by LoadDay when a cache file cannot be decoded. The
// file has been moved aside by then.
var ErrCorrupt = errors.New("corrupt cache file")

// DayFile is the on-disk form of one cached day.
type DayFile struct {
	Date       string               `json:"date"`
	FetchedAt  time.Time            `json:"fetched_at"`
	Heartbeats []model.RawHeartbeat `json:"heartbeats"`
}

// BaseDir returns the root cache directory: $XDG_CACHE_HOME/wakalyze, or
// ~/.cache/wakalyze.
func BaseDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CACHE_HOME")); xdg != "" {
		return filepath.Join(xdg, "wakalyze"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "wakalyze"), nil
}

// AccountDir returns the cache directory for one user on one server. server
// is the base URL without its scheme; its path separators are escaped so
// that instances sharing a host get separate directories.
func AccountDir(base, server, user string) string {
	return filepath.Join(base, pathSegment(server), pathSegment(user))
}

func pathSegment(s string) string {
	s = strings.ReplaceAll(url.PathEscape(strings.TrimSpace(s)), ":", "%3A")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// dayFilePath returns the path for the given date's JSON file.
func dayFilePath(dir string, t time.Time) string {
	return filepath.Join(dir, t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// LoadDay loads the cached heartbeats for date. ok is false when nothing is
// cached.
func LoadDay(dir string, date time.Time) (hbs []model.RawHeartbeat, ok bool, err error) {
	path := dayFilePath(dir, date)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage error reading %s: %w", path, err)
	}

	var df DayFile
	if err := json.Unmarshal(data, &df); err != nil || df.Date != calendar.FormatDate(date) {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, false, fmt.Errorf("%w %s (moved to %s)", ErrCorrupt, path, backupPath)
	}
	if df.Heartbeats == nil {
		df.Heartbeats = []model.RawHeartbeat{}
	}
	return df.Heartbeats, true, nil
}

// SaveDay atomically writes the heartbeats for date.
func SaveDay(dir string, date time.Time, hbs []model.RawHeartbeat) error {
	path := dayFilePath(dir, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	if hbs == nil {
		hbs = []model.RawHeartbeat{}
	}
	df := DayFile{Date: calendar.FormatDate(date), FetchedAt: time.Now().UTC(), Heartbeats: hbs}
	data, err := json.Marshal(df)
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage error creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// Clear removes everything below base. A missing directory is not an error.
func Clear(base string) error {
	if strings.TrimSpace(base) == "" {
		return errors.New("refusing to clear an empty cache path")
	}
	if err := os.RemoveAll(base); err != nil {
		return fmt.Errorf("storage error removing %s: %w", base, err)
	}
	return nil
}

// Source fetches the raw heartbeats of one day.
type Source interface {
	FetchHeartbeats(ctx context.Context, date time.Time) ([]model.RawHeartbeat, error)
}

// SettleDays is how many days before today a day must lie before its
// heartbeats are cached. Late-synced heartbeats and the server's own time zone
// can still change the previous day.
const SettleDays = 2

// CachedSource serves settled days from the cache in Dir and fetches
// everything else from Source. Days without heartbeats are never cached.
type CachedSource struct {
	Source Source
	Dir    string
	// Now defaults to time.Now.
	Now func() time.Time
}

// FetchHeartbeats implements Source.
func (c *CachedSource) FetchHeartbeats(ctx context.Context, date time.Time) ([]model.RawHeartbeat, error) {
	cacheable := c.cacheable(date)
	if cacheable {
		hbs, ok, err := LoadDay(c.Dir, date)
		switch {
		case err != nil:
			logging.Warn().Err(err).Str("date", calendar.FormatDate(date)).Msg("ignoring cached day")
		case ok:
			logging.Debug().Str("date", calendar.FormatDate(date)).Int("heartbeats", len(hbs)).Msg("cache hit")
			return hbs, nil
		}
	}

	hbs, err := c.Source.FetchHeartbeats(ctx, date)
	if err != nil {
		return nil, err
	}
	if cacheable && len(hbs) > 0 {
		if err := SaveDay(c.Dir, date, hbs); err != nil {
			logging.Warn().Err(err).Str("date", calendar.FormatDate(date)).Msg("could not cache day")
		}
	}
	return hbs, nil
}

func (c *CachedSource) cacheable(date time.Time) bool {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	today := calendar.DateOf(now().Local())
	return !calendar.DateOf(date).After(today.AddDate(0, 0, -SettleDays))
}
