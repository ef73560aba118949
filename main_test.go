package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focosxsite/internal/config"
	"focosxsite/internal/releases"
)

func testView() *releases.View {
	return &releases.View{
		State: releases.StateSucceeded,
		Releases: []*releases.Release{
			{TagName: "v2.1.0-beta.1", Name: "FocosX 2.1 beta", PublishedAt: "2023-11-01T00:00:00Z", Assets: []*releases.Asset{
				{Name: "FocosX-Setup-2.1.0.exe", URL: "https://github.com/EV-OD/focosx/releases/download/v2.1.0-beta.1/FocosX-Setup-2.1.0.exe", Size: 3 * 1024 * 1024},
				{Name: "FocosX-2.1.0.dmg", URL: "/releases/v2.1.0-beta.1/FocosX-2.1.0.dmg", Size: 1024 * 1024},
			}},
			{TagName: "v2.0.0", Assets: []*releases.Asset{{Name: "FocosX-2.0.0.AppImage", URL: "/releases/v2.0.0/FocosX-2.0.0.AppImage"}}},
			{TagName: "v1.0.0"},
		},
	}
}

func TestPrintReleases(t *testing.T) {
	var buf bytes.Buffer
	printReleases(&buf, testView(), releases.OSMac, 1, 1)
	out := buf.String()
	assert.Contains(t, out, "Latest: FocosX 2.1 beta (pre-release) [v2.1.0-beta.1] published 2023-11-01T00:00:00Z\n")
	assert.Contains(t, out, "Recommended for mac: FocosX-2.1.0.dmg (1.00 MB)\n")
	assert.Contains(t, out, "3.00 MB")
	assert.Contains(t, out, "Older releases (page 1 of 2):\n  v2.0.0\n")
	assert.NotContains(t, out, "v1.0.0")

	buf.Reset()
	printReleases(&buf, testView(), releases.OSMac, 9, 1)
	assert.Contains(t, buf.String(), "Older releases (page 2 of 2):\n  v1.0.0\n")

	buf.Reset()
	printReleases(&buf, &releases.View{}, releases.OSMac, 1, 0)
	assert.Equal(t, "No releases available\n", buf.String())
}

func TestSelectAsset(t *testing.T) {
	rel, asset, err := selectAsset(testView(), "", releases.OSWindows)
	require.NoError(t, err)
	assert.Equal(t, "v2.1.0-beta.1", rel.TagName)
	assert.Equal(t, "FocosX-Setup-2.1.0.exe", asset.Name)

	_, asset, err = selectAsset(testView(), "FocosX-2.1.0.dmg", releases.OSWindows)
	require.NoError(t, err)
	assert.Equal(t, "FocosX-2.1.0.dmg", asset.Name)

	_, _, err = selectAsset(testView(), "missing.zip", releases.OSWindows)
	assert.Error(t, err)

	_, _, err = selectAsset(&releases.View{}, "", releases.OSWindows)
	assert.Error(t, err)

	noAssets := &releases.View{Releases: []*releases.Release{{TagName: "v1.0.0"}}}
	_, _, err = selectAsset(noAssets, "", releases.OSLinux)
	assert.ErrorIs(t, err, errNoArtifact)
}

func TestLoadConfigUsesSetFlagsOnly(t *testing.T) {
	t.Setenv("FOCOSX_LISTEN", ":9999")
	t.Setenv("FOCOSX_PUBLIC_DIR", "from-env")
	cfgFile := filepath.Join(t.TempDir(), "focosx.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("repo: acme/widget\n"), 0644))

	fs := newFlagSet("serve")
	fs.String("listen", "", "")
	fs.String("public", "", "")
	fs.Bool("restrict-redirects", false, "")
	require.NoError(t, parseFlags(fs, []string{"-public", "site", "-restrict-redirects"}))

	cfg, err := loadConfig(&globalOptions{configFile: cfgFile}, fs, map[string]string{
		"listen":             config.KeyListen,
		"public":             config.KeyPublicDir,
		"restrict-redirects": config.KeyRestrictRedirects,
	})
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, "site", cfg.PublicDir)
	assert.True(t, cfg.Relay.RestrictRedirects)
	assert.Equal(t, "acme/widget", cfg.Repo)
}

func TestParseFlagsErrors(t *testing.T) {
	fs := newFlagSet("test")
	fs.SetOutput(&bytes.Buffer{})
	assert.ErrorIs(t, parseFlags(fs, []string{"-nope"}), errUsage)

	fs = newFlagSet("test")
	fs.SetOutput(&bytes.Buffer{})
	assert.NotErrorIs(t, parseFlags(fs, []string{"-h"}), errUsage)
}

func TestSnapshotSource(t *testing.T) {
	cfg := &config.Config{PublicDir: "public", SnapshotPath: releases.DefaultSnapshotPath}
	src, ok := snapshotSource(cfg).(*releases.FileSnapshotSource)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("public", "releases", "releases.json"), src.Path)

	cfg.SiteURL = "https://focosx.app/"
	remote, ok := snapshotSource(cfg).(*releases.SnapshotSource)
	require.True(t, ok)
	assert.Equal(t, "https://focosx.app/releases/releases.json", remote.URL)
}

func TestLoadViewFromLocalSnapshot(t *testing.T) {
	public := t.TempDir()
	cfg := &config.Config{
		Repo:         config.DefaultRepo,
		PublicDir:    public,
		SnapshotPath: releases.DefaultSnapshotPath,
		// unreachable, the snapshot must be enough
		GitHubAPIURL: "http://127.0.0.1:1/",
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.SnapshotFile()), 0755))
	require.NoError(t, os.WriteFile(cfg.SnapshotFile(), []byte(`[{"id": 1, "tag_name": "v1.0.0", "assets": []}]`), 0644))

	view, err := loadView(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, releases.StateSucceeded, view.State)
	require.NotNil(t, view.Latest())
	assert.Equal(t, "v1.0.0", view.Latest().TagName)
}
