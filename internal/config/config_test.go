package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default("develop", "upstream")
	cfg.Stack.Prefix = "pk/"
	cfg.PR.DraftByDefault = true
	require.NoError(t, Write(root, cfg))
	require.True(t, Exists(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "develop", loaded.Repository.MainBranch)
	assert.Equal(t, "upstream", loaded.Repository.Remote)
	assert.Equal(t, "pk/", loaded.Stack.Prefix)
	assert.Equal(t, 10, loaded.Stack.MaxDepth)
	assert.True(t, loaded.PR.DraftByDefault)
}

func TestLoadUninitialized(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pk init")
}

func TestMaxDepthDefaultsWhenUnset(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".pancake")
	require.NoError(t, os.MkdirAll(dir, 0755))
	raw := "[repository]\nmain_branch = \"main\"\nremote = \"origin\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte(raw), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Stack.MaxDepth)
}

func TestTokenPrecedence(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("GITLAB_TOKEN", "")

	cfg := Default("main", "origin")
	assert.Equal(t, "env-token", cfg.Token())

	cfg.Forge.APIToken = "config-token"
	assert.Equal(t, "config-token", cfg.Token(), "the config token wins over the environment")
}

func TestGlobalConfigOverridePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := "editor = \"vim\"\npager = \"less\"\n\n[aliases]\nss = \"submit --all\"\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))
	t.Setenv("PANCAKE_CONFIG", path)

	g, err := LoadGlobal()
	require.NoError(t, err)
	assert.Equal(t, "vim", g.Editor)
	assert.Equal(t, "submit --all", g.Aliases["ss"])
}

func TestGlobalConfigMissingIsZero(t *testing.T) {
	t.Setenv("PANCAKE_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	g, err := LoadGlobal()
	require.NoError(t, err)
	assert.Empty(t, g.Editor)
}
