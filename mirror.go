package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"focosxsite/internal/config"
	"focosxsite/internal/mirror"
)

func runMirror(ctx context.Context, g *globalOptions, args []string) error {
	fs := newFlagSet("mirror")
	fs.String("repo", "", "Repository to mirror, as owner/name or a GitHub URL (default "+config.DefaultRepo+")")
	fs.String("public", "", "Public directory the mirror is written into (default public)")
	fs.String("api-url", "", "GitHub API base URL")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadConfig(g, fs, map[string]string{
		"repo":    config.KeyRepo,
		"public":  config.KeyPublicDir,
		"api-url": config.KeyGitHubAPIURL,
	})
	if err != nil {
		return err
	}
	repo, err := cfg.Repository()
	if err != nil {
		return err
	}
	if cfg.GitHubToken == "" {
		log.Warn("No GitHub token set, API rate limits will be low")
	}

	m, err := mirror.New(ctx, mirror.Options{
		Repo:         repo,
		Token:        cfg.GitHubToken,
		OutDir:       cfg.MirrorDir(),
		PublicPrefix: cfg.MirrorPrefix(),
		APIBaseURL:   cfg.GitHubAPIURL,
	})
	if err != nil {
		return err
	}
	summary, err := m.Run(ctx)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"releases": summary.Releases,
		"assets":   summary.Assets,
		"skipped":  summary.Skipped,
	}).Infof("Mirror written to %s", cfg.MirrorDir())
	return nil
}
