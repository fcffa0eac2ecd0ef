package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	remoteGtfs "github.com/jamespfennell/gtfs"

	"busnear.dev/internal/app"
	"busnear.dev/internal/cli"
	"busnear.dev/internal/config"
	"busnear.dev/internal/flow"
	"busnear.dev/internal/gtfs"
	"busnear.dev/internal/report"
	"busnear.dev/internal/upstream"
)

const version = "1.0.0"

// options are the parsed command line flags.
type options struct {
	configFile string
	gtfsBundle string
	serve      bool
	port       int
	env        string

	address      string
	addressIndex int
	lat, lon     float64
	radius       int
	stopID       string
	firstStop    bool
	line         string
	listStops    bool
	limitStops   int
	json         bool
	noBidi       bool

	// set holds the names of the flags given explicitly.
	set map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("busnear", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts, err := parseFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cli.ExitOK
		}
		return cli.ExitUserInput
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		fmt.Fprintln(stderr, "Error loading configuration:", err)
		return cli.ExitError
	}
	opts.applyTo(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return cli.ExitError
	}

	plan := opts.plan()
	if err := config.ValidateModeFlags(opts.serve, !plan.Empty(), fs.Args()); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		fs.Usage()
		return cli.ExitUserInput
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := report.SetupSentry(report.SetupOptions{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Env,
		Release:     "busnear@" + version,
	}); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer report.FlushSentry()
	report.ConfigureScope(cfg.Env, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := upstream.NewPooledClient(cfg.Timeout)
	application := app.New(cfg, logger, client, loadBundle(ctx, cfg, client, logger), version)

	if opts.serve {
		if err := application.Serve(ctx); err != nil {
			logger.Error("server stopped", "error", err)
			report.ReportError(ctx, err, sentry.LevelFatal)
			return cli.ExitError
		}
		return cli.ExitOK
	}

	if application.Bundle != nil {
		application.CollectBundleMetrics(time.Now())
	}

	renderer := &cli.Renderer{
		Out:     stdout,
		JSON:    opts.json,
		Shape:   cli.NewShaper(!opts.noBidi),
		Aliases: cfg.Aliases,
	}
	session := application.NewSession()

	if !plan.Empty() || opts.json {
		return (&cli.OneShot{Renderer: renderer, Err: stderr}).Run(ctx, session, plan)
	}

	interactive := &cli.Interactive{
		Session:  session,
		Renderer: renderer,
		In:       stdin,
		Radius:   cfg.Radius,
	}
	switch err := interactive.Run(ctx); {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stdout, "\nBye")
	case err != nil:
		fmt.Fprintln(stderr, "Error:", err)
		return cli.ExitError
	}
	return cli.ExitOK
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	opts := &options{}

	fs.StringVar(&opts.configFile, "config", "", "Path to a YAML or JSON configuration file")
	fs.StringVar(&opts.gtfsBundle, "gtfs-bundle", "", "GTFS static zip (path or URL) used as an offline stop directory")
	fs.BoolVar(&opts.serve, "serve", false, "Serve the read-only HTTP API instead of running the CLI")
	fs.IntVar(&opts.port, "port", 0, "API server port (serve mode)")
	fs.StringVar(&opts.env, "env", "", "Environment (development|staging|production)")

	fs.StringVar(&opts.address, "address", "", "Address to geocode")
	fs.IntVar(&opts.addressIndex, "address-index", 0, "Which geocoding result to use")
	fs.Float64Var(&opts.lat, "lat", 0, "Latitude")
	fs.Float64Var(&opts.lon, "lon", 0, "Longitude")
	fs.IntVar(&opts.radius, "radius", 0, "Search radius in meters")
	fs.StringVar(&opts.stopID, "stop-id", "", "Stop id (Makat) to show lines for")
	fs.BoolVar(&opts.firstStop, "first-stop", false, "Pick the nearest stop automatically")
	fs.StringVar(&opts.line, "line", "", "Only show this line number")
	fs.BoolVar(&opts.listStops, "list-stops", false, "List nearby stops and exit")
	fs.IntVar(&opts.limitStops, "limit-stops", 0, "Show at most this many stops")
	fs.BoolVar(&opts.json, "json", false, "Output JSON instead of human readable text")
	fs.BoolVar(&opts.noBidi, "no-bidi", false, "Disable bidi rendering (raw text)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// applyTo overrides cfg with the flags that were given.
func (o *options) applyTo(cfg *config.Config) {
	if o.set["gtfs-bundle"] {
		cfg.GTFSBundle = o.gtfsBundle
	}
	if o.set["port"] {
		cfg.Port = o.port
	}
	if o.set["env"] {
		cfg.Env = o.env
	}
	if o.set["radius"] {
		cfg.Radius = o.radius
	}
	if o.set["limit-stops"] {
		cfg.StopLimit = o.limitStops
	}
	if o.serve && os.Getenv("LOG_LEVEL") == "" && cfg.LogLevel == config.Default().LogLevel {
		cfg.LogLevel = "info"
	}
}

func (o *options) plan() flow.Plan {
	p := flow.Plan{
		Address:      o.address,
		AddressIndex: o.addressIndex,
		Radius:       o.radius,
		LimitStops:   o.limitStops,
		ListStops:    o.listStops,
		FirstStop:    o.firstStop,
		StopID:       o.stopID,
		Line:         o.line,
	}
	if o.set["lat"] {
		lat := o.lat
		p.Lat = &lat
	}
	if o.set["lon"] {
		lon := o.lon
		p.Lon = &lon
	}
	return p
}

// loadBundle loads the configured GTFS bundle. A bundle that cannot be
// loaded only disables the offline fallback.
func loadBundle(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger) *remoteGtfs.Static {
	if cfg.GTFSBundle == "" {
		return nil
	}
	static, err := gtfs.LoadBundle(ctx, cfg.GTFSBundle, client)
	if err != nil {
		logger.Warn("offline stop directory disabled", "bundle", cfg.GTFSBundle, "error", err)
		return nil
	}
	return static
}
