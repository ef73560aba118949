// Package relay fetches release assets server side so browsers can
// download them without tripping over cross-origin restrictions.
//
// Handler is the endpoint, usually mounted at /api/proxy. Downloader
// is the client half: it tries the endpoint first and falls back to
// opening the original link in the browser.
package relay

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultTrustedSuffix is the only host suffix relayed by default
	DefaultTrustedSuffix = "github.com"
	// Path is where the site mounts the relay
	Path = "/api/proxy"

	defaultContentType = "application/octet-stream"
	maxRedirects       = 10
)

var (
	// ErrForbiddenHost is returned for URLs outside the trusted domain
	ErrForbiddenHost = errors.New("forbidden host")
	// ErrNotAbsolute is returned for URLs without a scheme and host
	ErrNotAbsolute = errors.New("url is not absolute")
)

// Handler relays a single URL given in the url query parameter
type Handler struct {
	// TrustedSuffix is matched against the end of the requested
	// host. The match is a plain suffix: github.com, api.github.com
	// and notgithub.com all pass.
	TrustedSuffix string
	// RestrictRedirects applies the host check to every redirect
	// hop as well as to the requested URL.
	RestrictRedirects bool
	// Client fetches upstream resources. Its CheckRedirect is
	// replaced when RestrictRedirects is set.
	Client *http.Client
}

// New returns a Handler trusting suffix, or DefaultTrustedSuffix if
// suffix is empty
func New(suffix string, restrictRedirects bool) *Handler {
	if suffix == "" {
		suffix = DefaultTrustedSuffix
	}
	return &Handler{
		TrustedSuffix:     suffix,
		RestrictRedirects: restrictRedirects,
	}
}

// CheckURL parses raw and verifies it can be relayed
func (h *Handler) CheckURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, ErrNotAbsolute
	}
	if err := h.checkHost(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (h *Handler) checkHost(u *url.URL) error {
	suffix := strings.ToLower(h.TrustedSuffix)
	if suffix == "" {
		suffix = DefaultTrustedSuffix
	}
	if !strings.HasSuffix(strings.ToLower(u.Hostname()), suffix) {
		return fmt.Errorf("%w %q", ErrForbiddenHost, u.Hostname())
	}
	return nil
}

func (h *Handler) client() *http.Client {
	c := h.Client
	if c == nil {
		c = http.DefaultClient
	}
	if !h.RestrictRedirects {
		return c
	}
	restricted := *c
	restricted.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.New("stopped after 10 redirects")
		}
		return h.checkHost(req.URL)
	}
	return &restricted
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}
	logger := log.WithField("url", raw)

	u, err := h.CheckURL(raw)
	if err != nil {
		if errors.Is(err, ErrForbiddenHost) {
			logger.Warn("refusing to relay untrusted host")
			http.Error(w, "Forbidden host", http.StatusForbidden)
			return
		}
		logger.Errorf("relay error: %v", err)
		http.Error(w, "Proxy error", http.StatusInternalServerError)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		logger.Errorf("relay error: %v", err)
		http.Error(w, "Proxy error", http.StatusInternalServerError)
		return
	}
	upstream, err := h.client().Do(req)
	if err != nil {
		if errors.Is(err, ErrForbiddenHost) {
			logger.Warnf("refusing to follow redirect: %v", err)
			http.Error(w, "Forbidden host", http.StatusForbidden)
			return
		}
		logger.Errorf("relay error: %v", err)
		http.Error(w, "Proxy error", http.StatusInternalServerError)
		return
	}
	defer upstream.Body.Close()

	if upstream.StatusCode < 200 || upstream.StatusCode >= 300 {
		logger.Warnf("upstream returned %d", upstream.StatusCode)
		http.Error(w, fmt.Sprintf("Upstream error: %d", upstream.StatusCode), upstream.StatusCode)
		return
	}

	// The whole payload is buffered so Content-Length is exact
	body, err := io.ReadAll(upstream.Body)
	if err != nil {
		logger.Errorf("relay error: %v", err)
		http.Error(w, "Proxy error", http.StatusInternalServerError)
		return
	}

	contentType := upstream.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Content-Type", contentType)
	if disposition := upstream.Header.Get("Content-Disposition"); disposition != "" {
		header.Set("Content-Disposition", disposition)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Debugf("error writing relayed body: %v", err)
	}
	logger.Debugf("relayed %d bytes", len(body))
}
