package releases

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrNoSources is returned by a Fetcher without any source
var ErrNoSources = errors.New("no release sources configured")

// Fetcher tries its sources in order and returns the releases
// from the first one that succeeds. Nothing is retried or cached.
type Fetcher struct {
	Sources []Source
}

// NewFetcher returns a Fetcher that reads the snapshot first and
// falls back to the live source. Nil sources are skipped.
func NewFetcher(snapshot Source, live Source) *Fetcher {
	f := &Fetcher{}
	for _, s := range []Source{snapshot, live} {
		if s != nil {
			f.Sources = append(f.Sources, s)
		}
	}
	return f
}

// Fetch returns the releases from the first working source. When
// every source fails, the returned error joins all their errors.
func (f *Fetcher) Fetch(ctx context.Context) ([]*Release, error) {
	if len(f.Sources) == 0 {
		return nil, ErrNoSources
	}
	var errs []error
	for _, s := range f.Sources {
		releases, err := s.Releases(ctx)
		if err == nil {
			log.WithField("source", s.Name()).Debugf("loaded %d releases", len(releases))
			return releases, nil
		}
		log.WithField("source", s.Name()).Debugf("release source failed: %v", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return nil, errors.Join(errs...)
}
