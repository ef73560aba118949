package main

import (
	"context"
	"strings"

	"focosxsite/internal/config"
	"focosxsite/internal/sitemap"
)

func runSitemap(ctx context.Context, g *globalOptions, args []string) error {
	fs := newFlagSet("sitemap")
	fs.String("dist", "", "Build output directory (default dist)")
	fs.String("site-url", "", "Public site URL, overrides SITE_URL and the metadata file")
	metadata := fs.String("metadata", "metadata.json", "Metadata file with siteUrl or url")
	pages := fs.String("pages", "/", "Comma separated list of page paths")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadConfig(g, fs, map[string]string{
		"dist":     config.KeyDistDir,
		"site-url": config.KeySiteURL,
	})
	if err != nil {
		return err
	}

	var paths []string
	for _, p := range strings.Split(*pages, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	_, err = sitemap.Generate(sitemap.Options{
		DistDir:      cfg.DistDir,
		SiteURL:      cfg.SiteURL,
		MetadataPath: *metadata,
		Pages:        paths,
	})
	return err
}
