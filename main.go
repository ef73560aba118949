package main // import "focosxsite"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	log "github.com/sirupsen/logrus"

	"focosxsite/internal/config"
	"focosxsite/internal/releases"
)

// command is a focosx-site subcommand. run receives the arguments
// after the command name.
type command struct {
	usage string
	run   func(ctx context.Context, g *globalOptions, args []string) error
}

var commands = map[string]command{
	"serve":    {"Serve the site, the download relay and the release listing", runServe},
	"mirror":   {"Download every release asset and write the releases snapshot", runMirror},
	"sitemap":  {"Write sitemap.xml and robots.txt", runSitemap},
	"releases": {"List the published releases", runReleases},
	"download": {"Download the best asset of the latest release", runDownload},
}

var errUsage = errors.New("usage")

type globalOptions struct {
	configFile string
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [command flags]\n\nCommands:\n", os.Args[0])
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s%s\n", name, commands[name].usage)
	}
	fmt.Fprintf(out, "\nFlags:\n")
	flag.PrintDefaults()
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// parseFlags parses a command's flags. Errors have already been
// printed by the FlagSet.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

// loadConfig reads the configuration, with overrides taken from the
// command flags the user actually set
func loadConfig(g *globalOptions, fs *flag.FlagSet, keys map[string]string) (*config.Config, error) {
	overrides := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			return
		}
		if getter, ok := f.Value.(flag.Getter); ok {
			overrides[key] = getter.Get()
		}
	})
	opts := []config.Option{config.WithOverrides(overrides)}
	if g.configFile != "" {
		opts = append(opts, config.WithFile(g.configFile))
	}
	return config.Load(opts...)
}

// newFetcher returns a Fetcher reading snapshot first and falling
// back to the GitHub API for the configured repository
func newFetcher(ctx context.Context, cfg *config.Config, snapshot releases.Source) (*releases.Fetcher, error) {
	repo, err := cfg.Repository()
	if err != nil {
		return nil, err
	}
	client, err := releases.NewGitHubClient(ctx, cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return nil, err
	}
	return releases.NewFetcher(snapshot, &releases.GitHubSource{Repo: repo, Client: client}), nil
}

func setLogLevel(debug bool, trace bool) {
	if trace || os.Getenv("FOCOSX_TRACE") != "" {
		log.SetLevel(log.TraceLevel)
	} else if debug || os.Getenv("FOCOSX_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	var g globalOptions
	debug := flag.Bool("debug", false, "Set logging level to debug")
	trace := flag.Bool("trace", false, "Set logging level to trace. Implies debug.")
	flag.StringVar(&g.configFile, "config", "", "Config file (default ./focosx.yaml if present)")
	flag.Usage = usage
	flag.Parse()
	setLogLevel(*debug, *trace)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.run(ctx, &g, flag.Args()[1:]); err != nil {
		stop()
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
