package releases

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"

	"github.com/hashicorp/go-version"
)

// Asset represents a downloadable file attached to a release
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// UnmarshalJSON accepts both the snapshot shape (url) and the
// upstream shape (browser_download_url).
func (a *Asset) UnmarshalJSON(data []byte) error {
	type plain Asset
	var aux struct {
		plain
		BrowserDownloadURL string `json:"browser_download_url"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Asset(aux.plain)
	if a.URL == "" {
		a.URL = aux.BrowserDownloadURL
	}
	return nil
}

// Platform returns the platform the asset was built for, as
// guessed from its filename
func (a *Asset) Platform() Platform {
	return PlatformFromFilename(a.Name)
}

// SizeMB returns the size formatted in megabytes
func (a *Asset) SizeMB() string {
	return fmt.Sprintf("%.2f MB", float64(a.Size)/1024/1024)
}

// Filename returns the name the asset should be saved as
func (a *Asset) Filename() string {
	if a.Name != "" {
		return a.Name
	}
	if u, err := url.Parse(a.URL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "download"
}

// Release represents a published version of the app. Releases
// are ordered newest first, so the first one is the latest.
type Release struct {
	ID          int64    `json:"id"`
	TagName     string   `json:"tag_name"`
	Name        string   `json:"name"`
	Body        string   `json:"body"`
	PublishedAt string   `json:"published_at"`
	Assets      []*Asset `json:"assets"`
}

// Title returns the name to display for the release
func (r *Release) Title() string {
	if r.Name != "" {
		return r.Name
	}
	return r.TagName
}

// Version returns the version parsed from the release tag, or nil
// if the tag doesn't look like a version.
func (r *Release) Version() *version.Version {
	v, err := ParseTag(r.TagName)
	if err != nil {
		return nil
	}
	return v
}

// IsPrerelease reports whether the tag denotes a pre-release
func (r *Release) IsPrerelease() bool {
	v := r.Version()
	return v != nil && v.Prerelease() != ""
}

// Best returns the asset that fits os best. See ChooseBest.
func (r *Release) Best(os OS) *Asset {
	return ChooseBest(r.Assets, os)
}
