package releases

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-version"
)

var (
	errEmptyTag = errors.New("tag is empty")

	strippedPrefixes = []string{
		"release/",
	}
)

// ParseTag parses a release tag like v1.2.3 or release/1.2.3
// into a version
func ParseTag(tag string) (*version.Version, error) {
	if tag == "" {
		return nil, errEmptyTag
	}
	var vers string
	if tag[0] == 'v' || tag[0] == 'V' {
		vers = tag[1:]
	} else {
		lowerTag := strings.ToLower(tag)
		for _, p := range strippedPrefixes {
			if strings.HasPrefix(lowerTag, p) {
				vers = tag[len(p):]
				break
			}
		}
		if vers == "" {
			vers = tag
		}
	}
	return version.NewVersion(vers)
}

// Repository identifies a GitHub repository
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepository accepts either owner/name or a
// https://github.com/owner/name URL.
func ParseRepository(s string) (Repository, error) {
	p := strings.TrimSpace(s)
	if strings.Contains(p, "://") {
		u, err := url.Parse(p)
		if err != nil || u.Hostname() != "github.com" {
			return Repository{}, fmt.Errorf("could not find a GitHub repository in %q", s)
		}
		p = u.Path
	}
	p = strings.TrimSuffix(strings.Trim(p, "/"), ".git")
	parts := strings.Split(p, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("could not find a GitHub repository in %q", s)
	}
	return Repository{Owner: parts[0], Name: parts[1]}, nil
}
