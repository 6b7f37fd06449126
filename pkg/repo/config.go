package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/odvcencio/grit/pkg/object"
)

const configFileName = "config.toml"

// Environment variables that take precedence over [user] in config.toml.
const (
	EnvAuthorName  = "GRIT_AUTHOR_NAME"
	EnvAuthorEmail = "GRIT_AUTHOR_EMAIL"
)

var (
	ErrNoIdentity       = errors.New("author identity unknown")
	ErrUnknownConfigKey = errors.New("unknown config key")
)

// Config mirrors .grit/config.toml.
type Config struct {
	User UserConfig `toml:"user"`
	Core CoreConfig `toml:"core"`
}

type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

type CoreConfig struct {
	// Compression names the codec for new objects: "zlib" or "zstd".
	Compression string `toml:"compression"`
}

// DefaultConfig is the config written by Init.
func DefaultConfig() *Config {
	return &Config{Core: CoreConfig{Compression: object.CodecZlib}}
}

func (r *Repo) configPath() string {
	return filepath.Join(r.GritDir, configFileName)
}

// ReadConfig reads .grit/config.toml. A missing file yields DefaultConfig.
func (r *Repo) ReadConfig() (*Config, error) {
	return readConfigFile(r.configPath())
}

// WriteConfig atomically writes .grit/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return writeConfigFile(r.configPath(), cfg)
}

func readConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("read config: %w %q", ErrUnknownConfigKey, undecoded[0].String())
	}
	if cfg.Core.Compression == "" {
		cfg.Core.Compression = object.CodecZlib
	}
	return cfg, nil
}

func writeConfigFile(path string, cfg *Config) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// Identity returns the author signature stamped at now. GRIT_AUTHOR_NAME and
// GRIT_AUTHOR_EMAIL override the [user] table.
func (c *Config) Identity(now time.Time) (object.Signature, error) {
	name := strings.TrimSpace(c.User.Name)
	if v := strings.TrimSpace(os.Getenv(EnvAuthorName)); v != "" {
		name = v
	}
	email := strings.TrimSpace(c.User.Email)
	if v := strings.TrimSpace(os.Getenv(EnvAuthorEmail)); v != "" {
		email = v
	}
	if name == "" || email == "" {
		return object.Signature{}, fmt.Errorf("%w: set user.name and user.email, or %s and %s",
			ErrNoIdentity, EnvAuthorName, EnvAuthorEmail)
	}
	return object.Signature{
		Name:     name,
		Email:    email,
		When:     now.Unix(),
		Timezone: now.Format("-0700"),
	}, nil
}

// configKeys maps dotted key names to their field accessors.
var configKeys = map[string]func(*Config) *string{
	"user.name":        func(c *Config) *string { return &c.User.Name },
	"user.email":       func(c *Config) *string { return &c.User.Email },
	"core.compression": func(c *Config) *string { return &c.Core.Compression },
}

// ConfigKeys lists the settable keys in sorted order.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value stored under a dotted key such as "user.name".
func (c *Config) Get(key string) (string, error) {
	field, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownConfigKey, key)
	}
	return *field(c), nil
}

// Set assigns a dotted key. core.compression must name a known codec.
func (c *Config) Set(key, value string) error {
	field, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownConfigKey, key)
	}
	value = strings.TrimSpace(value)
	if key == "core.compression" {
		if _, err := object.CodecByName(value); err != nil {
			return err
		}
	}
	*field(c) = value
	return nil
}

// SetConfig updates one key in .grit/config.toml.
func (r *Repo) SetConfig(key, value string) error {
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	if err := r.WriteConfig(cfg); err != nil {
		return err
	}
	r.log.Debug("config updated", "key", key)
	return nil
}
