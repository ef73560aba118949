package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"focosxsite/internal/config"
	"focosxsite/internal/releases"
)

// snapshotSource returns the published snapshot when the site URL
// is known and the local copy in the public directory otherwise
func snapshotSource(cfg *config.Config) releases.Source {
	if u := cfg.SnapshotURL(); u != "" {
		return &releases.SnapshotSource{URL: u}
	}
	return &releases.FileSnapshotSource{Path: cfg.SnapshotFile()}
}

func loadView(ctx context.Context, cfg *config.Config) (*releases.View, error) {
	fetcher, err := newFetcher(ctx, cfg, snapshotSource(cfg))
	if err != nil {
		return nil, err
	}
	view := &releases.View{}
	if err := view.Load(ctx, fetcher); err != nil {
		return view, fmt.Errorf("%s: %w", view.Error, err)
	}
	return view, nil
}

func printAsset(w io.Writer, a *releases.Asset) {
	fmt.Fprintf(w, "    %-40s %-8s %10s  %s\n", a.Filename(), a.Platform(), a.SizeMB(), a.URL)
}

func printRelease(w io.Writer, r *releases.Release) {
	title := r.Title()
	if r.IsPrerelease() {
		title += " (pre-release)"
	}
	fmt.Fprintf(w, "%s", title)
	if r.TagName != "" && r.TagName != title {
		fmt.Fprintf(w, " [%s]", r.TagName)
	}
	if r.PublishedAt != "" {
		fmt.Fprintf(w, " published %s", r.PublishedAt)
	}
	fmt.Fprintln(w)
}

// printReleases writes the latest release with its recommended
// asset for target, followed by the requested page of older releases
func printReleases(w io.Writer, view *releases.View, target releases.OS, page int, perPage int) {
	latest := view.Latest()
	if latest == nil {
		fmt.Fprintln(w, "No releases available")
		return
	}
	fmt.Fprint(w, "Latest: ")
	printRelease(w, latest)
	if best := latest.Best(target); best != nil {
		fmt.Fprintf(w, "  Recommended for %s: %s (%s)\n", target, best.Filename(), best.SizeMB())
	} else {
		fmt.Fprintln(w, "  No suitable artifact found")
	}
	for _, a := range latest.Assets {
		if a != nil {
			printAsset(w, a)
		}
	}

	older := view.Older(page, perPage)
	if len(older.Releases) == 0 {
		return
	}
	fmt.Fprintf(w, "\nOlder releases (page %d of %d):\n", older.Number, older.Total)
	for _, r := range older.Releases {
		fmt.Fprint(w, "  ")
		printRelease(w, r)
		for _, a := range r.Assets {
			if a != nil {
				printAsset(w, a)
			}
		}
	}
}

func runReleases(ctx context.Context, g *globalOptions, args []string) error {
	fs := newFlagSet("releases")
	fs.String("repo", "", "Repository, as owner/name or a GitHub URL (default "+config.DefaultRepo+")")
	fs.String("site-url", "", "Public site URL to read the snapshot from")
	page := fs.Int("page", 1, "Page of older releases")
	perPage := fs.Int("per-page", releases.DefaultPerPage, "Older releases per page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadConfig(g, fs, map[string]string{
		"repo":     config.KeyRepo,
		"site-url": config.KeySiteURL,
	})
	if err != nil {
		return err
	}
	view, err := loadView(ctx, cfg)
	if err != nil {
		return err
	}
	printReleases(os.Stdout, view, releases.OSFromGOOS(runtime.GOOS), *page, *perPage)
	return nil
}
