package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"

	"focosxsite/internal/config"
	"focosxsite/internal/relay"
	"focosxsite/internal/releases"
)

var errNoArtifact = errors.New("no suitable artifact found")

// selectAsset returns the asset called name in the latest release,
// or the best one for target when name is empty
func selectAsset(view *releases.View, name string, target releases.OS) (*releases.Release, *releases.Asset, error) {
	latest := view.Latest()
	if latest == nil {
		return nil, nil, errors.New("no releases available")
	}
	if name == "" {
		if best := latest.Best(target); best != nil {
			return latest, best, nil
		}
		return latest, nil, errNoArtifact
	}
	for _, a := range latest.Assets {
		if a != nil && a.Name == name {
			return latest, a, nil
		}
	}
	return latest, nil, fmt.Errorf("release %s has no asset %q", latest.Title(), name)
}

func runDownload(ctx context.Context, g *globalOptions, args []string) error {
	fs := newFlagSet("download")
	fs.String("site-url", "", "Public site URL hosting the relay")
	fs.String("dir", "", "Directory to save the download into (default .)")
	goos := fs.String("os", runtime.GOOS, "GOOS value to pick the asset for")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: download [flags] [asset name]\n")
		fs.PrintDefaults()
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errUsage
	}
	cfg, err := loadConfig(g, fs, map[string]string{
		"site-url": config.KeySiteURL,
		"dir":      config.KeyDownloadsDir,
	})
	if err != nil {
		return err
	}
	view, err := loadView(ctx, cfg)
	if err != nil {
		return err
	}
	rel, asset, err := selectAsset(view, fs.Arg(0), releases.OSFromGOOS(*goos))
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"release": rel.Title(),
		"size":    asset.SizeMB(),
	}).Infof("Downloading %s", asset.Filename())

	d := &relay.Downloader{
		SiteURL: cfg.SiteURL,
		Dir:     cfg.DownloadsDir,
	}
	res, err := d.Download(ctx, asset.URL, asset.Name)
	if err != nil {
		return err
	}
	if res.Path != "" {
		fmt.Println(res.Path)
	}
	return nil
}
