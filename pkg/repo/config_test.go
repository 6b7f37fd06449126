package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigDefaults(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, os.Remove(filepath.Join(r.GritDir, "config.toml")))

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "zlib", cfg.Core.Compression)
	assert.Empty(t, cfg.User.Name)
}

func TestConfigRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.SetConfig("user.name", "Ada Lovelace"))
	require.NoError(t, r.SetConfig("user.email", "ada@example.com"))
	require.NoError(t, r.SetConfig("core.compression", "zstd"))

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	for key, want := range map[string]string{
		"user.name":        "Ada Lovelace",
		"user.email":       "ada@example.com",
		"core.compression": "zstd",
	} {
		got, err := cfg.Get(key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}

	data, err := os.ReadFile(filepath.Join(r.GritDir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[user]")
	assert.Contains(t, string(data), `name = "Ada Lovelace"`)
}

func TestConfigRejectsUnknownKeysAndCodecs(t *testing.T) {
	r := newTestRepo(t)

	require.ErrorIs(t, r.SetConfig("core.editor", "vi"), ErrUnknownConfigKey)
	require.Error(t, r.SetConfig("core.compression", "lz4"))

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	_, err = cfg.Get("nope")
	require.ErrorIs(t, err, ErrUnknownConfigKey)

	require.NoError(t, os.WriteFile(filepath.Join(r.GritDir, "config.toml"), []byte("[core]\ncolour = true\n"), 0o644))
	_, err = r.ReadConfig()
	require.ErrorIs(t, err, ErrUnknownConfigKey)

	require.NoError(t, os.WriteFile(filepath.Join(r.GritDir, "config.toml"), []byte("[core\n"), 0o644))
	_, err = r.ReadConfig()
	require.Error(t, err)
}

func TestConfigKeys(t *testing.T) {
	assert.Equal(t, []string{"core.compression", "user.email", "user.name"}, ConfigKeys())
}

func TestIdentity(t *testing.T) {
	t.Setenv(EnvAuthorName, "")
	t.Setenv(EnvAuthorEmail, "")
	now := time.Unix(1700000000, 0).In(time.FixedZone("", 2*3600))

	cfg := DefaultConfig()
	_, err := cfg.Identity(now)
	require.ErrorIs(t, err, ErrNoIdentity)

	cfg.User = UserConfig{Name: "Ada Lovelace", Email: "ada@example.com"}
	sig, err := cfg.Identity(now)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", sig.Name)
	assert.Equal(t, "ada@example.com", sig.Email)
	assert.Equal(t, int64(1700000000), sig.When)
	assert.Equal(t, "+0200", sig.Timezone)

	t.Setenv(EnvAuthorName, "Grace Hopper")
	t.Setenv(EnvAuthorEmail, "grace@example.com")
	sig, err = cfg.Identity(now)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", sig.Name)
	assert.Equal(t, "grace@example.com", sig.Email)

	// Environment alone is enough.
	sig, err = DefaultConfig().Identity(now)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", sig.Name)
}
