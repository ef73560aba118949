package sitemap

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	log "github.com/sirupsen/logrus"
)

const sitemapTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
{{- range .URLs }}
  <url>
    <loc>{{ xml . }}</loc>
  </url>
{{- end }}
</urlset>`

const robotsTemplate = `User-agent: *
Allow: /
{{ with .SiteURL }}Sitemap: {{ . }}/sitemap.xml
{{ end }}`

var templates = template.Must(template.New("sitemap.xml").Funcs(template.FuncMap{
	"xml": template.HTMLEscapeString,
}).Parse(sitemapTemplate))

var robots = template.Must(template.New("robots.txt").Parse(robotsTemplate))

// Options configures Generate
type Options struct {
	DistDir string
	// SiteURL takes precedence over the metadata file
	SiteURL string
	// MetadataPath points to a metadata.json with siteUrl or url
	MetadataPath string
	// Pages defaults to just "/"
	Pages []string
}

type metadata struct {
	SiteURL string `json:"siteUrl"`
	URL     string `json:"url"`
}

// Output lists the files Generate wrote
type Output struct {
	Sitemap string
	Robots  string
	SiteURL string
}

// ResolveSiteURL returns the site URL without a trailing slash,
// preferring explicit over the metadata file. A missing or broken
// metadata file is ignored.
func ResolveSiteURL(explicit string, metadataPath string) string {
	siteURL := explicit
	if siteURL == "" && metadataPath != "" {
		if data, err := os.ReadFile(metadataPath); err == nil {
			var md metadata
			if err := json.Unmarshal(data, &md); err == nil {
				siteURL = md.SiteURL
				if siteURL == "" {
					siteURL = md.URL
				}
			} else {
				log.Debugf("ignoring %s: %v", metadataPath, err)
			}
		}
	}
	return strings.TrimSuffix(siteURL, "/")
}

// Generate writes sitemap.xml and robots.txt into opts.DistDir
func Generate(opts Options) (*Output, error) {
	siteURL := ResolveSiteURL(opts.SiteURL, opts.MetadataPath)
	pages := opts.Pages
	if len(pages) == 0 {
		pages = []string{"/"}
	}
	urls := make([]string, len(pages))
	for ii, p := range pages {
		urls[ii] = siteURL + p
	}

	if err := os.MkdirAll(opts.DistDir, 0755); err != nil {
		return nil, err
	}
	out := &Output{
		Sitemap: filepath.Join(opts.DistDir, "sitemap.xml"),
		Robots:  filepath.Join(opts.DistDir, "robots.txt"),
		SiteURL: siteURL,
	}

	var buf bytes.Buffer
	if err := templates.Execute(&buf, struct{ URLs []string }{urls}); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out.Sitemap, buf.Bytes(), 0644); err != nil {
		return nil, err
	}

	buf.Reset()
	if err := robots.Execute(&buf, struct{ SiteURL string }{siteURL}); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out.Robots, buf.Bytes(), 0644); err != nil {
		return nil, err
	}
	log.Infof("Wrote sitemap.xml and robots.txt to %s", opts.DistDir)
	return out, nil
}
