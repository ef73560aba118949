// Package mirror downloads every asset of every release of a
// repository and writes the snapshot the site reads before falling
// back to the GitHub API.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v30/github"
	log "github.com/sirupsen/logrus"

	"focosxsite/internal/releases"
)

const (
	// SnapshotName is the file written at the root of the output directory
	SnapshotName = "releases.json"
	// DefaultPublicPrefix is where the output directory is served
	DefaultPublicPrefix = "/releases"

	untaggedDir = "untagged"
	userAgent   = "focosx-mirror"
)

var errEscapesOutput = errors.New("path escapes the output directory")

// Options configures a mirror run
type Options struct {
	Repo  releases.Repository
	Token string
	// OutDir is removed and recreated on every run
	OutDir string
	// PublicPrefix is the URL path OutDir is published under
	PublicPrefix string
	// APIBaseURL overrides https://api.github.com/
	APIBaseURL string
	// HTTPClient downloads the assets
	HTTPClient *http.Client
}

// Summary reports what a run did
type Summary struct {
	Releases int
	Assets   int
	Skipped  int
	Snapshot string
}

// Mirror copies the releases of a repository to a local directory
type Mirror struct {
	opts   Options
	client *github.Client
}

// New returns a Mirror for the given options
func New(ctx context.Context, opts Options) (*Mirror, error) {
	if opts.OutDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if opts.PublicPrefix == "" {
		opts.PublicPrefix = DefaultPublicPrefix
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	client, err := releases.NewGitHubClient(ctx, opts.Token, opts.APIBaseURL)
	if err != nil {
		return nil, err
	}
	return &Mirror{opts: opts, client: client}, nil
}

// Run lists the releases, downloads their assets one at a time and
// writes the snapshot. Failing to list releases aborts the run;
// assets that fail to download are logged and left out.
func (m *Mirror) Run(ctx context.Context) (*Summary, error) {
	log.Infof("Mirroring releases for %s", m.opts.Repo)
	ghReleases, err := releases.ListAllReleases(ctx, m.client, m.opts.Repo)
	if err != nil {
		return nil, fmt.Errorf("listing releases of %s: %w", m.opts.Repo, err)
	}

	if err := os.RemoveAll(m.opts.OutDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.opts.OutDir, 0755); err != nil {
		return nil, err
	}

	summary := &Summary{}
	mapped := make([]*releases.Release, 0, len(ghReleases))
	for _, r := range ghReleases {
		rel, skipped, err := m.mirrorRelease(ctx, r)
		if err != nil {
			return nil, err
		}
		mapped = append(mapped, rel)
		summary.Releases++
		summary.Assets += len(rel.Assets)
		summary.Skipped += skipped
	}

	snapshot := filepath.Join(m.opts.OutDir, SnapshotName)
	if err := WriteSnapshot(snapshot, mapped); err != nil {
		return nil, err
	}
	summary.Snapshot = snapshot
	log.Infof("Wrote releases map to %s", snapshot)
	return summary, nil
}

func releaseTag(r *github.RepositoryRelease) string {
	if tag := r.GetTagName(); tag != "" {
		return tag
	}
	if name := r.GetName(); name != "" {
		return name
	}
	return untaggedDir
}

// within joins elem to dir, refusing results outside of dir
func within(dir string, elem ...string) (string, error) {
	p := filepath.Join(append([]string{dir}, elem...)...)
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errEscapesOutput, filepath.Join(elem...))
	}
	return p, nil
}

func (m *Mirror) mirrorRelease(ctx context.Context, r *github.RepositoryRelease) (*releases.Release, int, error) {
	rel := releases.FromGitHub(r)
	tag := releaseTag(r)
	// Assets are rebuilt from what actually gets downloaded
	upstream := rel.Assets
	rel.Assets = make([]*releases.Asset, 0, len(upstream))

	releaseDir, err := within(m.opts.OutDir, tag)
	if err != nil {
		log.WithField("tag", tag).Warnf("skipping release assets: %v", err)
		return rel, len(upstream), nil
	}
	if err := os.MkdirAll(releaseDir, 0755); err != nil {
		return nil, 0, err
	}

	skipped := 0
	for _, a := range upstream {
		dest, err := within(releaseDir, a.Name)
		if err == nil && filepath.Dir(dest) != releaseDir {
			err = fmt.Errorf("%w: %s", errEscapesOutput, a.Name)
		}
		if err == nil {
			log.Infof("Downloading %s -> %s", a.URL, dest)
			err = m.download(ctx, a.URL, dest)
		}
		if err != nil {
			log.WithField("url", a.URL).Warnf("Failed to download asset: %v", err)
			skipped++
			continue
		}
		rel.Assets = append(rel.Assets, &releases.Asset{
			ID:   a.ID,
			Name: a.Name,
			URL:  m.publicURL(tag, a.Name),
			Size: a.Size,
		})
	}
	return rel, skipped, nil
}

func (m *Mirror) publicURL(tag string, name string) string {
	prefix := strings.TrimSuffix(m.opts.PublicPrefix, "/")
	return prefix + "/" + url.PathEscape(tag) + "/" + url.PathEscape(name)
}

// download streams u into dest. The token is sent to the first
// host only; net/http drops it on redirects to other hosts.
func (m *Mirror) download(ctx context.Context, u string, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	if m.opts.Token != "" {
		req.Header.Set("Authorization", "token "+m.opts.Token)
	}
	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to download %s: %d", u, resp.StatusCode)
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

// WriteSnapshot writes the release map as indented JSON. The same
// releases always produce the same bytes.
func WriteSnapshot(path string, rels []*releases.Release) error {
	if rels == nil {
		rels = []*releases.Release{}
	}
	for _, r := range rels {
		if r.Assets == nil {
			r.Assets = []*releases.Asset{}
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rels); err != nil {
		return err
	}
	return os.WriteFile(path, bytes.TrimSuffix(buf.Bytes(), []byte("\n")), 0644)
}
