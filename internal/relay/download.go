package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"
)

// Messages reported to the user while downloading
const (
	MessageStarting   = "Starting download..."
	MessageStarted    = "Download started"
	MessageRedirected = "Download started (redirecting to host)"
	MessageFailed     = "Download failed. Please try again."
)

var errNoRelay = errors.New("no relay configured")

// Result describes how a download was started
type Result struct {
	Message string
	// Path is the saved file when the relay succeeded
	Path string
	// Fallback is true when the link was handed to the browser
	Fallback bool
}

// Downloader saves assets through the relay, falling back to
// opening the asset link directly when the relay can't be used
type Downloader struct {
	// SiteURL is the site hosting the relay. Relative asset URLs
	// are resolved against it.
	SiteURL string
	// Dir is where relayed downloads are written
	Dir    string
	Client *http.Client
	// Open hands a URL to the system browser. Defaults to
	// browser.OpenURL.
	Open func(u string) error
}

func (d *Downloader) resolve(assetURL string) (*url.URL, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() || d.SiteURL == "" {
		return u, nil
	}
	base, err := url.Parse(d.SiteURL)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(u), nil
}

func filenameFor(u *url.URL, filename string) string {
	if filename == "" && u != nil {
		filename = path.Base(u.Path)
	}
	filename = filepath.Base(filename)
	if filename == "" || filename == "." || filename == "/" || filename == string(filepath.Separator) {
		filename = "download"
	}
	return filename
}

// Download starts downloading assetURL, saving it as filename. If
// filename is empty, the last element of the URL is used.
func (d *Downloader) Download(ctx context.Context, assetURL string, filename string) (*Result, error) {
	log.Info(MessageStarting)
	target, err := d.resolve(assetURL)
	if err != nil {
		log.Errorf("invalid asset URL %q: %v", assetURL, err)
		return &Result{Message: MessageFailed}, err
	}
	name := filenameFor(target, filename)

	dest, err := d.viaRelay(ctx, target, name)
	if err == nil {
		log.WithField("path", dest).Info(MessageStarted)
		return &Result{Message: MessageStarted, Path: dest}, nil
	}
	log.WithField("url", target.String()).Warnf("relay download failed, falling back to direct link: %v", err)

	open := d.Open
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(target.String()); err != nil {
		log.Errorf("could not open %s: %v", target, err)
		return &Result{Message: MessageFailed, Fallback: true}, err
	}
	log.Info(MessageRedirected)
	return &Result{Message: MessageRedirected, Fallback: true}, nil
}

// RelayURL returns the relay endpoint URL for target
func (d *Downloader) RelayURL(target string) (string, error) {
	if d.SiteURL == "" {
		return "", errNoRelay
	}
	base, err := url.Parse(d.SiteURL)
	if err != nil {
		return "", err
	}
	u := base.ResolveReference(&url.URL{Path: Path})
	u.RawQuery = url.Values{"url": {target}}.Encode()
	return u.String(), nil
}

func (d *Downloader) viaRelay(ctx context.Context, target *url.URL, name string) (string, error) {
	relayURL, err := d.RelayURL(target.String())
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, relayURL, nil)
	if err != nil {
		return "", err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("relay returned %d", resp.StatusCode)
	}

	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}
