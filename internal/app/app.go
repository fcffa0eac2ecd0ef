package app

import (
	"log/slog"
	"net/http"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"busnear.dev/internal/arrival"
	"busnear.dev/internal/config"
	"busnear.dev/internal/flow"
	"busnear.dev/internal/gtfs"
	"busnear.dev/internal/upstream"
)

// Application wires the upstream clients, the optional offline directory
// and the configuration into sessions. The CLI uses one session for the
// whole run; serve mode builds one per request.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Version string

	Geocoder   flow.Geocoder
	Stops      flow.StopFinder
	Lines      flow.LineSource
	Normalizer *arrival.Normalizer

	// Bundle and Directory are nil unless a GTFS bundle was loaded.
	Bundle    *remoteGtfs.Static
	Directory *gtfs.StopDirectory
}

// New creates and wires all dependencies for the Application. bundle may be
// nil, in which case nearby stops come from bus.gov.il only.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, bundle *remoteGtfs.Static, version string) *Application {
	loc, ok := arrival.LoadLocation(cfg.Timezone)
	if !ok {
		logger.Warn("unknown timezone, using the local zone", "timezone", cfg.Timezone)
	}

	bus := upstream.NewBusClient(cfg.BusAPIBaseURL, cfg.BusAPILanguage, client, logger)
	finder := &upstream.FallbackFinder{Primary: bus, Logger: logger}

	var directory *gtfs.StopDirectory
	if bundle != nil {
		directory = gtfs.NewStopDirectory(bundle, logger)
		finder.Secondary = directory
	}

	aliases := cfg.Aliases
	return &Application{
		Config:   cfg,
		Logger:   logger,
		Version:  version,
		Geocoder: upstream.NewNominatim(cfg.GeocoderURL, cfg.UserAgent, cfg.AcceptLanguage, client, logger),
		Stops:    finder,
		Lines:    bus,
		Normalizer: arrival.NewNormalizer(arrival.Options{
			Location: loc,
			Aliases:  &aliases,
		}),
		Bundle:    bundle,
		Directory: directory,
	}
}

// SessionOptions returns the options every new session starts from.
func (app *Application) SessionOptions() flow.Options {
	return flow.Options{
		Geocoder:     app.Geocoder,
		Stops:        app.Stops,
		Lines:        app.Lines,
		Normalizer:   app.Normalizer,
		Aliases:      app.Config.Aliases,
		Radius:       app.Config.Radius,
		StopLimit:    app.Config.StopLimit,
		GeocodeLimit: app.Config.GeocodeLimit,
		Logger:       app.Logger,
	}
}

// NewSession starts a session with the configured defaults.
func (app *Application) NewSession() *flow.Session {
	return flow.NewSession(app.SessionOptions())
}
