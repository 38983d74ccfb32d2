package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"

	halclient "github.com/reoring/halclient"
	"github.com/reoring/halclient/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sub := os.Args[1]
	switch sub {
	case "get":
		getCmd(ctx, os.Args[2:])
	case "follow":
		followCmd(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "halclient CLI\n\nUsage:\n  halclient get [-config f] [-format json|yaml|dump] <locator>\n  halclient follow [-config f] [-format json|yaml|dump] <locator> <rel>\n\nRelative locators resolve against base_url from the config file.")
}

type common struct {
	configPath string
	format     string
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default: search $HALCLIENT_CONFIG, ./halclient.yaml, ~/.config/halclient)")
	fs.StringVar(&c.format, "format", "json", "output format: json, yaml or dump")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logs")
}

// setup loads the config and returns a logger and fetcher built from it.
func (c *common) setup() (*config.Config, *slog.Logger, *halclient.HTTPFetcher) {
	var (
		cfg *config.Config
		loc config.Location
		err error
	)
	if c.configPath != "" {
		cfg, loc, err = config.LoadFromPath(c.configPath)
	} else {
		cfg, loc, err = config.Load()
	}
	if err != nil {
		fatalf("config: %v", err)
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fatalf("logger: %v", err)
	}
	logger.Debug("config loaded", "path", loc.Path, "source", loc.Source)
	f, err := halclient.NewHTTPFetcher(cfg.HTTPConfig(logger))
	if err != nil {
		fatalf("fetcher: %v", err)
	}
	return cfg, logger, f
}

func getCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	var c common
	c.register(fs)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	_, _, f := c.setup()
	defer f.Close()

	res, err := f.Fetch(ctx, fs.Arg(0))
	if err != nil {
		fatalf("get: %v", err)
	}
	if err := render(os.Stdout, c.format, res); err != nil {
		fatalf("render: %v", err)
	}
}

// followCmd resolves one relation of a document. Embedded elements print
// without a request; link-only elements are fetched lazily as they print.
func followCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("follow", flag.ExitOnError)
	var c common
	c.register(fs)
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(2)
	}
	cfg, logger, f := c.setup()
	defer f.Close()
	ctx = halclient.WithLogger(ctx, logger)

	m, err := newDocumentMapper(cfg, f, logger)
	if err != nil {
		fatalf("mapper: %v", err)
	}
	res, err := f.Fetch(ctx, fs.Arg(0))
	if err != nil {
		fatalf("follow: %v", err)
	}
	elems, ok, err := res.Elements(fs.Arg(1))
	if err != nil {
		fatalf("follow: %v", err)
	}
	if !ok {
		fatalf("follow: %s has no relation %q", fs.Arg(0), fs.Arg(1))
	}
	docs, err := halclient.NewCollectionResolver[document](m).ResolveCollection(ctx, elems)
	if err != nil {
		fatalf("follow: %v", err)
	}
	for i, d := range docs {
		body, err := d.Resource(ctx)
		if err != nil {
			fatalf("follow: element %d: %v", i, err)
		}
		fmt.Fprintf(os.Stdout, "# %d %s\n", i, body.SelfLocator())
		if err := render(os.Stdout, c.format, body); err != nil {
			fatalf("render: %v", err)
		}
	}
}

// render writes res as indented JSON, YAML or a spew dump of its generic form.
func render(w io.Writer, format string, res *halclient.Resource) error {
	if format == "json" {
		data, err := res.MarshalJSON()
		if err != nil {
			return err
		}
		return writeIndented(w, data)
	}
	generic, err := toGeneric(res)
	if err != nil {
		return err
	}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	case "dump":
		spew.Fdump(w, generic)
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(1)
}
