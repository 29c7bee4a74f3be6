// Package config stores wakalyze settings in a small JSON file and resolves
// the effective user, server and API key from flags, that file and the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"github.com/Tiliavir/wakalyze/internal/wakapi"
)

var (
	// ErrMissingAuth is returned when no API key is configured anywhere.
	ErrMissingAuth = errors.New("missing auth: set WAKAPI_KEY or run `wakalyze config set --key <token>`")
	// ErrMissingUser is returned when no user is configured anywhere.
	ErrMissingUser = errors.New("missing user: use --user, set WAKAPI_USER, or run `wakalyze config set --user`")
)

// Config is the stored configuration. Empty fields are unset.
type Config struct {
	Key     string `json:"key,omitempty"`
	User    string `json:"user,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// FilePath returns $XDG_CONFIG_HOME/wakalyze/config.json, falling back to
// ~/.config/wakalyze/config.json.
func FilePath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wakalyze", "config.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "wakalyze", "config.json"), nil
}

// Load reads the config at path. It never fails: a missing or unreadable
// file, invalid JSON, a non-object document and non-string or blank values
// all leave the affected settings unset. // and /* */ comments are allowed.
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	data = jsonc.ToJSON(data)
	if !gjson.ValidBytes(data) {
		return Config{}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Config{}
	}
	return Config{
		Key:     stringField(doc, "key"),
		User:    stringField(doc, "user"),
		BaseURL: stringField(doc, "base_url"),
	}
}

func stringField(doc gjson.Result, name string) string {
	v := doc.Get(name)
	if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
		return ""
	}
	return v.Str
}

// Save writes cfg to path as indented JSON with mode 0600, replacing the file
// atomically.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

// MaskSecret hides all but the last four characters of value.
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// Update describes a `config set` request. A nil value leaves the field
// alone; a blank value or a Clear flag unsets it.
type Update struct {
	Key, User, BaseURL                *string
	ClearKey, ClearUser, ClearBaseURL bool
}

// Apply returns cfg with u applied and whether anything was requested.
func (u Update) Apply(cfg Config) (Config, bool) {
	var changed bool
	changed = updateField(&cfg.Key, u.Key, u.ClearKey) || changed
	changed = updateField(&cfg.User, u.User, u.ClearUser) || changed
	changed = updateField(&cfg.BaseURL, u.BaseURL, u.ClearBaseURL) || changed
	return cfg, changed
}

func updateField(target *string, value *string, unset bool) bool {
	if unset {
		*target = ""
		return true
	}
	if value == nil {
		return false
	}
	*target = strings.TrimSpace(*value)
	return true
}

// Env exposes the WAKAPI_* environment variables.
type Env struct {
	v *viper.Viper
}

// NewEnv returns an Env reading WAKAPI_KEY, WAKAPI_USER and WAKAPI_BASE_URL.
func NewEnv() *Env {
	v := viper.New()
	v.SetEnvPrefix("wakapi")
	v.AutomaticEnv()
	return &Env{v: v}
}

func (e *Env) get(key string) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.v.GetString(key))
}

// firstNonBlank returns the first value that is not blank after trimming,
// trimmed.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ResolveBaseURL picks the server from the flag, the config, WAKAPI_BASE_URL
// or the public instance, in that order.
func ResolveBaseURL(flag string, cfg Config, env *Env) string {
	if v := firstNonBlank(flag, cfg.BaseURL, env.get("base_url")); v != "" {
		return v
	}
	return wakapi.DefaultBaseURL
}

// ResolveUser picks the user from the flag, the config or WAKAPI_USER.
func ResolveUser(flag string, cfg Config, env *Env) (string, error) {
	if v := firstNonBlank(flag, cfg.User, env.get("user")); v != "" {
		return v, nil
	}
	return "", ErrMissingUser
}

// ResolveAPIKey picks the API key from the config or WAKAPI_KEY.
func ResolveAPIKey(cfg Config, env *Env) (string, error) {
	if v := firstNonBlank(cfg.Key, env.get("key")); v != "" {
		return v, nil
	}
	return "", ErrMissingAuth
}
