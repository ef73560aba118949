package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"focosxsite/internal/config"
	"focosxsite/internal/releases"
	"focosxsite/internal/site"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, g *globalOptions, args []string) error {
	fs := newFlagSet("serve")
	fs.String("listen", "", "Address to listen on (default :8080)")
	fs.String("public", "", "Directory with the static site (default public)")
	fs.String("trusted-suffix", "", "Host suffix the relay accepts (default github.com)")
	fs.Bool("restrict-redirects", false, "Check the relay host on every redirect")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadConfig(g, fs, map[string]string{
		"listen":             config.KeyListen,
		"public":             config.KeyPublicDir,
		"trusted-suffix":     config.KeyTrustedSuffix,
		"restrict-redirects": config.KeyRestrictRedirects,
	})
	if err != nil {
		return err
	}

	// The server reads its own copy of the snapshot from disk
	fetcher, err := newFetcher(ctx, cfg, &releases.FileSnapshotSource{Path: cfg.SnapshotFile()})
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           site.New(cfg, fetcher),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("public", cfg.PublicDir).Infof("Listening on %s", cfg.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
