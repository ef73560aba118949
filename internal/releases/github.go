package releases

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v30/github"
	"golang.org/x/oauth2"
)

const allReleasesPageSize = 100

// NewGitHubClient returns a GitHub API client. A non-empty token
// authenticates every API request, which raises rate limits and
// gives access to private repositories. A non-empty baseURL
// replaces https://api.github.com/.
func NewGitHubClient(ctx context.Context, token string, baseURL string) (*github.Client, error) {
	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %v", baseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}
	return client, nil
}

// FromGitHub converts a release returned by the GitHub API. Assets
// point at their browser_download_url.
func FromGitHub(r *github.RepositoryRelease) *Release {
	rel := &Release{
		ID:      r.GetID(),
		TagName: r.GetTagName(),
		Name:    r.GetName(),
		Body:    r.GetBody(),
		Assets:  make([]*Asset, 0, len(r.Assets)),
	}
	if r.PublishedAt != nil {
		rel.PublishedAt = r.PublishedAt.UTC().Format(time.RFC3339)
	}
	for ii := range r.Assets {
		a := r.Assets[ii]
		rel.Assets = append(rel.Assets, &Asset{
			ID:   a.GetID(),
			Name: a.GetName(),
			URL:  a.GetBrowserDownloadURL(),
			Size: int64(a.GetSize()),
		})
	}
	return rel
}

func listError(resp *github.Response, err error) error {
	if resp != nil && resp.Response != nil {
		return fmt.Errorf("GitHub API returned %d: %w", resp.StatusCode, err)
	}
	return err
}

// ListAllReleases walks every page of the repository releases,
// keeping the order GitHub returns them in (newest first).
func ListAllReleases(ctx context.Context, client *github.Client, repo Repository) ([]*github.RepositoryRelease, error) {
	var all []*github.RepositoryRelease
	opts := &github.ListOptions{PerPage: allReleasesPageSize}
	for {
		page, resp, err := client.Repositories.ListReleases(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, listError(resp, err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}
