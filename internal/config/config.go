package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"focosxsite/internal/relay"
	"focosxsite/internal/releases"
)

const (
	KeyRepo              = "repo"
	KeyGitHubToken       = "github_token"
	KeyGitHubAPIURL      = "github_api_url"
	KeySiteURL           = "site_url"
	KeyPublicDir         = "public_dir"
	KeyDistDir           = "dist_dir"
	KeyDownloadsDir      = "downloads_dir"
	KeyListen            = "listen"
	KeySnapshotPath      = "snapshot_path"
	KeyTrustedSuffix     = "relay.trusted_suffix"
	KeyRestrictRedirects = "relay.restrict_redirects"

	// DefaultRepo is the repository the site publishes
	DefaultRepo = "EV-OD/focosx"

	envPrefix  = "FOCOSX"
	configName = "focosx"
)

// Config holds the settings shared by every command
type Config struct {
	Repo         string      `mapstructure:"repo"`
	GitHubToken  string      `mapstructure:"github_token"`
	GitHubAPIURL string      `mapstructure:"github_api_url"`
	SiteURL      string      `mapstructure:"site_url"`
	PublicDir    string      `mapstructure:"public_dir"`
	DistDir      string      `mapstructure:"dist_dir"`
	DownloadsDir string      `mapstructure:"downloads_dir"`
	Listen       string      `mapstructure:"listen"`
	SnapshotPath string      `mapstructure:"snapshot_path"`
	Relay        RelayConfig `mapstructure:"relay"`
}

// RelayConfig holds the download relay settings
type RelayConfig struct {
	TrustedSuffix     string `mapstructure:"trusted_suffix"`
	RestrictRedirects bool   `mapstructure:"restrict_redirects"`
}

type loadSettings struct {
	file      string
	searchDir string
	overrides map[string]any
}

// Option configures Load
type Option func(*loadSettings)

// WithFile reads the given config file, which must exist
func WithFile(path string) Option {
	return func(s *loadSettings) {
		s.file = path
	}
}

// WithSearchDir looks for an optional focosx.yaml in dir instead of
// the working directory
func WithSearchDir(dir string) Option {
	return func(s *loadSettings) {
		s.searchDir = dir
	}
}

// WithOverrides sets values typically coming from command line flags.
// Empty strings are ignored so unset flags don't mask other sources.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		s.overrides = overrides
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyRepo, DefaultRepo)
	v.SetDefault(KeyGitHubToken, "")
	v.SetDefault(KeyGitHubAPIURL, "")
	v.SetDefault(KeySiteURL, "")
	v.SetDefault(KeyPublicDir, "public")
	v.SetDefault(KeyDistDir, "dist")
	v.SetDefault(KeyDownloadsDir, ".")
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeySnapshotPath, releases.DefaultSnapshotPath)
	v.SetDefault(KeyTrustedSuffix, relay.DefaultTrustedSuffix)
	v.SetDefault(KeyRestrictRedirects, false)
}

// Load reads the configuration using the precedence:
// defaults < config file < environment variables < overrides.
//
// Environment variables use the FOCOSX_ prefix (FOCOSX_LISTEN,
// FOCOSX_RELAY_TRUSTED_SUFFIX). GITHUB_TOKEN and SITE_URL are read
// without prefix, as CI provides them.
func Load(opts ...Option) (*Config, error) {
	settings := loadSettings{searchDir: "."}
	for _, opt := range opts {
		opt(&settings)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyGitHubToken, envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, err
	}
	if err := v.BindEnv(KeySiteURL, envPrefix+"_SITE_URL", "SITE_URL"); err != nil {
		return nil, err
	}

	if settings.file != "" {
		v.SetConfigFile(settings.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", settings.file, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(settings.searchDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	for k, val := range settings.overrides {
		if s, ok := val.(string); ok && s == "" {
			continue
		}
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Repository parses the configured repository
func (c *Config) Repository() (releases.Repository, error) {
	return releases.ParseRepository(c.Repo)
}

// SnapshotFile is where the snapshot lives inside the public directory
func (c *Config) SnapshotFile() string {
	return filepath.Join(c.PublicDir, filepath.FromSlash(strings.TrimPrefix(c.SnapshotPath, "/")))
}

// MirrorDir is the directory the mirror writes, the one holding the
// snapshot
func (c *Config) MirrorDir() string {
	return filepath.Dir(c.SnapshotFile())
}

// MirrorPrefix is the URL path the mirror directory is served under
func (c *Config) MirrorPrefix() string {
	return path.Dir(c.SnapshotPath)
}

// SnapshotURL is the snapshot address on the public site, or empty
// when no site URL is configured
func (c *Config) SnapshotURL() string {
	if c.SiteURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.SiteURL, "/") + c.SnapshotPath
}
