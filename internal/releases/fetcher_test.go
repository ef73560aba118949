package releases

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoReleasesSnapshot = `[
  {
    "id": 2,
    "tag_name": "v2.0.0",
    "name": "FocosX 2.0",
    "body": "Dual engine",
    "published_at": "2023-10-24T10:00:00Z",
    "assets": [
      {"id": 21, "name": "FocosX-Setup-2.0.0.exe", "url": "/releases/v2.0.0/FocosX-Setup-2.0.0.exe", "size": 1048576}
    ]
  },
  {
    "id": 1,
    "tag_name": "v1.5.2",
    "name": "",
    "body": "",
    "published_at": "2023-09-10T10:00:00Z",
    "assets": []
  }
]`

const githubReleases = `[
  {
    "id": 3,
    "tag_name": "v2.1.0",
    "name": "FocosX 2.1",
    "body": "Live",
    "published_at": "2023-11-01T08:30:00Z",
    "assets": [
      {"id": 31, "name": "FocosX-2.1.0.dmg", "browser_download_url": "https://github.com/EV-OD/focosx/releases/download/v2.1.0/FocosX-2.1.0.dmg", "size": 2048}
    ]
  }
]`

// fakeGitHub serves the releases listing of EV-OD/focosx and
// counts the requests it gets
func fakeGitHub(t *testing.T, status int, body string) (*GitHubSource, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/repos/EV-OD/focosx/releases" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	client, err := NewGitHubClient(context.Background(), "", srv.URL)
	require.NoError(t, err)
	return &GitHubSource{
		Repo:   Repository{Owner: "EV-OD", Name: "focosx"},
		Client: client,
	}, &calls
}

func fakeSnapshot(t *testing.T, status int, body string) *SnapshotSource {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultSnapshotPath {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return &SnapshotSource{URL: srv.URL + DefaultSnapshotPath}
}

func TestFetchPrefersSnapshot(t *testing.T) {
	live, calls := fakeGitHub(t, http.StatusOK, githubReleases)
	f := NewFetcher(fakeSnapshot(t, http.StatusOK, twoReleasesSnapshot), live)

	releases, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "v2.0.0", releases[0].TagName)
	assert.Equal(t, "v1.5.2", releases[1].TagName)
	assert.Equal(t, "/releases/v2.0.0/FocosX-Setup-2.0.0.exe", releases[0].Assets[0].URL)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestFetchFallsBackToGitHub(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"missing":            {http.StatusNotFound, "not found"},
		"html":               {http.StatusOK, "<!doctype html><html></html>"},
		"object":             {http.StatusOK, `{"releases": []}`},
		"null":               {http.StatusOK, "null"},
		"trailing":           {http.StatusOK, `[] []`},
		"null entry":         {http.StatusOK, "[null]"},
		"null after release": {http.StatusOK, `[{"id": 2, "tag_name": "v2.0.0", "assets": []}, null]`},
		"error":              {http.StatusInternalServerError, "[]"},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			live, calls := fakeGitHub(t, http.StatusOK, githubReleases)
			f := NewFetcher(fakeSnapshot(t, tc.status, tc.body), live)

			releases, err := f.Fetch(context.Background())
			require.NoError(t, err)
			require.Len(t, releases, 1)
			assert.Equal(t, int32(1), atomic.LoadInt32(calls))

			r := releases[0]
			assert.Equal(t, int64(3), r.ID)
			assert.Equal(t, "v2.1.0", r.TagName)
			assert.Equal(t, "FocosX 2.1", r.Name)
			assert.Equal(t, "Live", r.Body)
			assert.Equal(t, "2023-11-01T08:30:00Z", r.PublishedAt)
			require.Len(t, r.Assets, 1)
			assert.Equal(t, &Asset{
				ID:   31,
				Name: "FocosX-2.1.0.dmg",
				URL:  "https://github.com/EV-OD/focosx/releases/download/v2.1.0/FocosX-2.1.0.dmg",
				Size: 2048,
			}, r.Assets[0])
		})
	}
}

func TestFetchUnreachableSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	unreachable := srv.URL + DefaultSnapshotPath
	srv.Close()

	live, calls := fakeGitHub(t, http.StatusOK, githubReleases)
	f := NewFetcher(&SnapshotSource{URL: unreachable}, live)
	releases, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, releases, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestFetchAllSourcesFail(t *testing.T) {
	live, calls := fakeGitHub(t, http.StatusForbidden, `{"message": "API rate limit exceeded"}`)
	f := NewFetcher(fakeSnapshot(t, http.StatusNotFound, ""), live)

	releases, err := f.Fetch(context.Background())
	assert.Nil(t, releases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot returned 404")
	assert.Contains(t, err.Error(), "GitHub API returned 403")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	v := &View{}
	assert.Error(t, v.Load(context.Background(), f))
	assert.Equal(t, StateFailed, v.State)
	assert.Nil(t, v.Releases)
	assert.Contains(t, v.Error, "GitHub API returned 403")
	assert.NotContains(t, v.Error, "snapshot")
}

func TestFetchWithoutSources(t *testing.T) {
	_, err := NewFetcher(nil, nil).Fetch(context.Background())
	assert.Equal(t, ErrNoSources, err)
}

func TestFileSnapshotSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "releases.json")
	require.NoError(t, os.WriteFile(path, []byte(twoReleasesSnapshot), 0644))

	releases, err := (&FileSnapshotSource{Path: path}).Releases(context.Background())
	require.NoError(t, err)
	assert.Len(t, releases, 2)

	_, err = (&FileSnapshotSource{Path: filepath.Join(dir, "missing.json")}).Releases(context.Background())
	assert.Error(t, err)

	// a null entry makes the whole snapshot unusable
	holey := filepath.Join(dir, "holey.json")
	require.NoError(t, os.WriteFile(holey, []byte(`[{"id": 2, "tag_name": "v2.0.0", "assets": []}, null]`), 0644))
	releases, err = (&FileSnapshotSource{Path: holey}).Releases(context.Background())
	assert.ErrorIs(t, err, errNullRelease)
	assert.Nil(t, releases)
}

func TestListAllReleasesFollowsPages(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/releases?page=2&per_page=100>; rel="next"`, srvURL))
			fmt.Fprint(w, `[{"id": 2, "tag_name": "v2"}]`)
		case "2":
			fmt.Fprint(w, `[{"id": 1, "tag_name": "v1"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	client, err := NewGitHubClient(context.Background(), "", srv.URL)
	require.NoError(t, err)
	all, err := ListAllReleases(context.Background(), client, Repository{Owner: "o", Name: "r"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "v2", all[0].GetTagName())
	assert.Equal(t, "v1", all[1].GetTagName())
}

func TestGitHubClientSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client, err := NewGitHubClient(context.Background(), "s3cret", srv.URL)
	require.NoError(t, err)
	releases, err := (&GitHubSource{Repo: Repository{Owner: "o", Name: "r"}, Client: client}).Releases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, releases)
}

func TestGitHubSourceRemote(t *testing.T) {
	if testing.Short() || os.Getenv("FOCOSX_REMOTE_TESTS") == "" {
		t.Skip("skip remote test")
	}
	src := &GitHubSource{Repo: Repository{Owner: "EV-OD", Name: "focosx"}}
	if _, err := src.Releases(context.Background()); err != nil {
		t.Fatal(err)
	}
}
