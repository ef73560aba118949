package releases

import (
	"context"
	"errors"
)

// DefaultPerPage is the number of older releases listed per page
const DefaultPerPage = 5

const defaultErrorMessage = "Failed to fetch releases"

// State is the lifecycle of a release listing
type State int

const (
	StateLoading State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View holds the releases loaded for a single page view or
// command. Build a new one every time; views are not shared.
type View struct {
	State    State      `json:"state"`
	Releases []*Release `json:"releases"`
	Error    string     `json:"error,omitempty"`
}

// Load fetches the releases and records the outcome
func (v *View) Load(ctx context.Context, f *Fetcher) error {
	v.State = StateLoading
	v.Releases = nil
	v.Error = ""
	releases, err := f.Fetch(ctx)
	if err != nil {
		v.State = StateFailed
		v.Error = errorMessage(err)
		return err
	}
	v.State = StateSucceeded
	v.Releases = releases
	return nil
}

func errorMessage(err error) string {
	// Joined errors end with the live source, the one worth showing
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		if errs := joined.Unwrap(); len(errs) > 0 {
			err = errs[len(errs)-1]
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultErrorMessage
}

// Latest returns the newest release, or nil
func (v *View) Latest() *Release {
	if len(v.Releases) == 0 {
		return nil
	}
	return v.Releases[0]
}

// Page is a page of the releases older than the latest one
type Page struct {
	Number   int
	Total    int
	Releases []*Release
}

// Older returns the requested page of releases after the latest
// one. page is clamped to the available range and perPage <= 0
// means DefaultPerPage.
func (v *View) Older(page int, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	var others []*Release
	if len(v.Releases) > 1 {
		others = v.Releases[1:]
	}
	total := (len(others) + perPage - 1) / perPage
	if total < 1 {
		total = 1
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(others) {
		start = len(others)
	}
	if end > len(others) {
		end = len(others)
	}
	return Page{
		Number:   page,
		Total:    total,
		Releases: others[start:end],
	}
}
