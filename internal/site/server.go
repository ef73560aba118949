// Package site serves the FocosX website: static files from the
// public directory, the download relay and release listings.
package site

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"focosxsite/internal/config"
	"focosxsite/internal/relay"
	"focosxsite/internal/releases"
)

const (
	// ReleasesPath serves the release listing as JSON
	ReleasesPath = "/api/releases"
	// LatestPath redirects to the best download for the visitor
	LatestPath = "/download/latest"

	msgNoReleases = "No releases available"
	msgNoArtifact = "No suitable artifact found"
)

// Server is the site http.Handler
type Server struct {
	fetcher *releases.Fetcher
	relay   *relay.Handler
	mux     *http.ServeMux
}

// New returns a Server for the given configuration. Release
// listings come from fetcher.
func New(cfg *config.Config, fetcher *releases.Fetcher) *Server {
	s := &Server{
		fetcher: fetcher,
		relay:   relay.New(cfg.Relay.TrustedSuffix, cfg.Relay.RestrictRedirects),
		mux:     http.NewServeMux(),
	}
	s.mux.Handle(relay.Path, s.relay)
	s.mux.HandleFunc(ReleasesPath, s.serveReleases)
	s.mux.HandleFunc(LatestPath, s.serveLatest)
	s.mux.Handle("/", http.FileServer(http.Dir(cfg.PublicDir)))
	return s
}

func (s *Server) serveReleases(w http.ResponseWriter, r *http.Request) {
	var view releases.View
	status := http.StatusOK
	if err := view.Load(r.Context(), s.fetcher); err != nil {
		log.Errorf("loading releases: %v", err)
		status = http.StatusBadGateway
	}
	if view.Releases == nil {
		view.Releases = []*releases.Release{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&view); err != nil {
		log.Debugf("writing releases: %v", err)
	}
}

func requestOS(r *http.Request) releases.OS {
	switch os := releases.OS(r.URL.Query().Get("os")); os {
	case releases.OSWindows, releases.OSMac, releases.OSLinux:
		return os
	}
	return releases.DetectOS(r.UserAgent())
}

func (s *Server) serveLatest(w http.ResponseWriter, r *http.Request) {
	var view releases.View
	if err := view.Load(r.Context(), s.fetcher); err != nil {
		log.Errorf("loading releases: %v", err)
		http.Error(w, view.Error, http.StatusBadGateway)
		return
	}
	latest := view.Latest()
	if latest == nil {
		http.Error(w, msgNoReleases, http.StatusNotFound)
		return
	}
	os := requestOS(r)
	asset := latest.Best(os)
	if asset == nil || asset.URL == "" {
		http.Error(w, msgNoArtifact, http.StatusNotFound)
		return
	}
	target := asset.URL
	if u, err := url.Parse(asset.URL); err == nil && u.IsAbs() {
		target = relay.Path + "?" + url.Values{"url": {asset.URL}}.Encode()
	}
	log.WithFields(log.Fields{
		"os":    os,
		"tag":   latest.TagName,
		"asset": asset.Name,
	}).Debug("redirecting to latest download")
	http.Redirect(w, r, target, http.StatusFound)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(sw, r)
	log.WithFields(log.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   sw.status,
		"duration": time.Since(start),
	}).Info("request")
}
