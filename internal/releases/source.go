package releases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/go-github/v30/github"
)

// DefaultSnapshotPath is where the mirrored release map is
// published on the site
const DefaultSnapshotPath = "/releases/releases.json"

var (
	errNotArray    = errors.New("snapshot is not a list of releases")
	errNullRelease = errors.New("snapshot contains a null release")
)

// Source is an interface that provides the available releases,
// newest first.
type Source interface {
	Name() string
	Releases(ctx context.Context) ([]*Release, error)
}

func decodeSnapshot(data []byte) ([]*Release, error) {
	var releases []*Release
	if err := json.Unmarshal(data, &releases); err != nil {
		return nil, err
	}
	if releases == nil {
		return nil, errNotArray
	}
	for _, r := range releases {
		if r == nil {
			return nil, errNullRelease
		}
	}
	return releases, nil
}

// SnapshotSource reads the release map generated by the mirror
// over HTTP
type SnapshotSource struct {
	URL    string
	Client *http.Client
}

// Name implements the Source interface
func (s *SnapshotSource) Name() string {
	return "snapshot " + s.URL
}

// Releases implements the Source interface
func (s *SnapshotSource) Releases(ctx context.Context) ([]*Release, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("snapshot returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// FileSnapshotSource reads the release map from disk, for the
// server that hosts it
type FileSnapshotSource struct {
	Path string
}

// Name implements the Source interface
func (s *FileSnapshotSource) Name() string {
	return "snapshot file " + s.Path
}

// Releases implements the Source interface
func (s *FileSnapshotSource) Releases(ctx context.Context) ([]*Release, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// GitHubSource lists the releases of a GitHub repository. Only
// the first page is requested, in a single call.
type GitHubSource struct {
	Repo   Repository
	Client *github.Client
}

// Name implements the Source interface
func (s *GitHubSource) Name() string {
	return "GitHub " + s.Repo.String()
}

// Releases implements the Source interface
func (s *GitHubSource) Releases(ctx context.Context) ([]*Release, error) {
	client := s.Client
	if client == nil {
		client = github.NewClient(nil)
	}
	ghReleases, resp, err := client.Repositories.ListReleases(ctx, s.Repo.Owner, s.Repo.Name, nil)
	if err != nil {
		return nil, listError(resp, err)
	}
	releases := make([]*Release, 0, len(ghReleases))
	for _, r := range ghReleases {
		releases = append(releases, FromGitHub(r))
	}
	return releases, nil
}
