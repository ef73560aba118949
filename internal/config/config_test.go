package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focosxsite/internal/relay"
	"focosxsite/internal/releases"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"GITHUB_TOKEN", "SITE_URL",
		"FOCOSX_GITHUB_TOKEN", "FOCOSX_SITE_URL", "FOCOSX_REPO",
		"FOCOSX_LISTEN", "FOCOSX_PUBLIC_DIR", "FOCOSX_RELAY_TRUSTED_SUFFIX",
		"FOCOSX_RELAY_RESTRICT_REDIRECTS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(WithSearchDir(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, DefaultRepo, cfg.Repo)
	assert.Equal(t, "", cfg.GitHubToken)
	assert.Equal(t, "public", cfg.PublicDir)
	assert.Equal(t, "dist", cfg.DistDir)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "/releases/releases.json", cfg.SnapshotPath)
	assert.Equal(t, relay.DefaultTrustedSuffix, cfg.Relay.TrustedSuffix)
	assert.False(t, cfg.Relay.RestrictRedirects)

	repo, err := cfg.Repository()
	require.NoError(t, err)
	assert.Equal(t, releases.Repository{Owner: "EV-OD", Name: "focosx"}, repo)
	assert.Equal(t, filepath.Join("public", "releases", "releases.json"), cfg.SnapshotFile())
	assert.Equal(t, filepath.Join("public", "releases"), cfg.MirrorDir())
	assert.Equal(t, "/releases", cfg.MirrorPrefix())
	assert.Equal(t, "", cfg.SnapshotURL())
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ci-token")
	t.Setenv("SITE_URL", "https://focosx.app/")
	t.Setenv("FOCOSX_LISTEN", "127.0.0.1:9000")
	t.Setenv("FOCOSX_RELAY_RESTRICT_REDIRECTS", "true")

	cfg, err := Load(WithSearchDir(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "ci-token", cfg.GitHubToken)
	assert.Equal(t, "https://focosx.app/", cfg.SiteURL)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.True(t, cfg.Relay.RestrictRedirects)
	assert.Equal(t, "https://focosx.app/releases/releases.json", cfg.SnapshotURL())
}

func TestLoadFileAndOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "focosx.yaml"), []byte(`
repo: https://github.com/acme/widget
public_dir: site
listen: ":9090"
relay:
  trusted_suffix: example.org
`), 0644))
	t.Setenv("FOCOSX_PUBLIC_DIR", "from-env")

	cfg, err := Load(WithSearchDir(dir), WithOverrides(map[string]any{
		KeyListen: ":7070",
		KeyRepo:   "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widget", cfg.Repo)
	assert.Equal(t, "from-env", cfg.PublicDir)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "example.org", cfg.Relay.TrustedSuffix)

	repo, err := cfg.Repository()
	require.NoError(t, err)
	assert.Equal(t, "acme/widget", repo.String())
}

func TestLoadExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "site.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"snapshot_path": "/mirror/index.json"}`), 0644))
	cfg, err := Load(WithFile(path))
	require.NoError(t, err)
	assert.Equal(t, "/mirror", cfg.MirrorPrefix())
	assert.Equal(t, filepath.Join("public", "mirror"), cfg.MirrorDir())
}
