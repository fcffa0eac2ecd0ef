// Package flow drives the resolution from a place to realtime arrivals:
// address or coordinates, then nearby stops, then one stop, then its lines.
package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"busnear.dev/internal/arrival"
	"busnear.dev/internal/fields"
	"busnear.dev/internal/geo"
	"busnear.dev/internal/lines"
	"busnear.dev/internal/metrics"
	"busnear.dev/internal/models"
	"busnear.dev/internal/report"
	"busnear.dev/internal/stops"
)

// State is a position in the resolution flow.
type State int

const (
	NoLocation State = iota
	HaveLocation
	HaveStops
	HaveStop
	Done
)

func (s State) String() string {
	switch s {
	case NoLocation:
		return "no_location"
	case HaveLocation:
		return "have_location"
	case HaveStops:
		return "have_stops"
	case HaveStop:
		return "have_stop"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) []models.GeocodeCandidate
}

type StopFinder interface {
	NearbyStops(ctx context.Context, lat, lon float64, radiusMeters int) []models.RawRecord
}

type LineSource interface {
	RealtimeLines(ctx context.Context, stopID string) []models.RawRecord
}

// Options are the collaborators and defaults shared by sessions.
type Options struct {
	Geocoder   Geocoder
	Stops      StopFinder
	Lines      LineSource
	Normalizer *arrival.Normalizer
	Aliases    fields.Aliases

	// Radius is used when FindStops is called with a non-positive radius.
	Radius       int
	StopLimit    int
	GeocodeLimit int

	Logger *slog.Logger
}

// Session holds the selection state of one interactive session or one
// request. It is not safe for concurrent use.
type Session struct {
	ID string

	opts   Options
	logger *slog.Logger

	state      State
	location   *models.Coordinates
	candidates []models.GeocodeCandidate
	stops      []models.StopDescriptor
	stop       *models.StopDescriptor
	radius     int
}

// NewSession starts a session in the NoLocation state.
func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Normalizer == nil {
		opts.Normalizer = arrival.NewNormalizer(arrival.Options{Aliases: &opts.Aliases})
	}
	if opts.GeocodeLimit <= 0 {
		opts.GeocodeLimit = 5
	}

	id := uuid.NewString()
	return &Session{
		ID:     id,
		opts:   opts,
		logger: opts.Logger.With("session_id", id),
		state:  NoLocation,
	}
}

func (s *Session) State() State { return s.state }

// Location returns the selected coordinates, if any.
func (s *Session) Location() (models.Coordinates, bool) {
	if s.location == nil {
		return models.Coordinates{}, false
	}
	return *s.location, true
}

func (s *Session) Candidates() []models.GeocodeCandidate { return s.candidates }

// Stops returns the sorted, capped result of the last FindStops.
func (s *Session) Stops() []models.StopDescriptor { return s.stops }

// Stop returns the chosen stop, if any.
func (s *Session) Stop() (models.StopDescriptor, bool) {
	if s.stop == nil {
		return models.StopDescriptor{}, false
	}
	return *s.stop, true
}

// Radius returns the radius used by the last FindStops.
func (s *Session) Radius() int { return s.radius }

// SearchAddress geocodes query and remembers the candidates for PickAddress.
// The current location is kept until a candidate is picked.
func (s *Session) SearchAddress(ctx context.Context, query string) ([]models.GeocodeCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, s.fail(fmt.Errorf("empty address: %w", ErrInvalidInput))
	}

	candidates := s.opts.Geocoder.Geocode(s.context(ctx), query, s.opts.GeocodeLimit)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, s.fail(fmt.Errorf("%q: %w", query, ErrNoGeocodeResults))
	}

	s.candidates = candidates
	return candidates, nil
}

// PickAddress selects candidate i of the last SearchAddress as the location.
func (s *Session) PickAddress(i int) (models.GeocodeCandidate, error) {
	if i < 0 || i >= len(s.candidates) {
		return models.GeocodeCandidate{}, s.fail(fmt.Errorf("address %d of %d: %w", i, len(s.candidates), ErrIndexOutOfRange))
	}

	c := s.candidates[i]
	if !c.HasCoordinates {
		return models.GeocodeCandidate{}, s.fail(fmt.Errorf("address %d has no coordinates: %w", i, ErrInvalidInput))
	}
	s.setLocation(c.Coordinates)
	return c, nil
}

// SetCoordinates sets the location directly. Positions outside Israel are
// accepted with a warning since the upstream simply returns nothing there.
func (s *Session) SetCoordinates(lat, lon float64) error {
	if !geo.IsValidLatLon(lat, lon) {
		return s.fail(fmt.Errorf("coordinates %v,%v: %w", lat, lon, ErrInvalidInput))
	}
	if !geo.ServiceArea.Contains(lat, lon) {
		s.logger.Warn("coordinates are outside the bus.gov.il service area", "lat", lat, "lon", lon)
	}
	s.setLocation(models.Coordinates{Lat: lat, Lon: lon})
	return nil
}

// setLocation moves to HaveLocation and forgets any stop selection.
func (s *Session) setLocation(c models.Coordinates) {
	s.location = &c
	s.stops = nil
	s.stop = nil
	s.state = HaveLocation
}

// FindStops lists the stops around the location, nearest first. A
// non-positive radius uses the configured default. An empty result is not
// an error.
func (s *Session) FindStops(ctx context.Context, radius int) ([]models.StopDescriptor, error) {
	if s.location == nil {
		return nil, s.fail(ErrNoLocation)
	}
	if radius <= 0 {
		radius = s.opts.Radius
	}

	records := s.opts.Stops.NearbyStops(s.context(ctx), s.location.Lat, s.location.Lon, radius)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	descriptors := stops.BuildAll(records, s.opts.Aliases)
	stops.Sort(descriptors)
	descriptors = stops.Limit(descriptors, s.opts.StopLimit)

	s.radius = radius
	s.stops = descriptors
	s.stop = nil
	s.state = HaveStops
	s.logger.Debug("found stops", "count", len(descriptors), "radius", radius)
	return descriptors, nil
}

// SetStopLimit overrides the result cap for later FindStops calls.
func (s *Session) SetStopLimit(n int) {
	s.opts.StopLimit = n
}

// PickStop selects stop i of the last FindStops. On error the state is
// unchanged.
func (s *Session) PickStop(i int) (models.StopDescriptor, error) {
	if i < 0 || i >= len(s.stops) {
		return models.StopDescriptor{}, s.fail(fmt.Errorf("stop %d of %d: %w", i, len(s.stops), ErrIndexOutOfRange))
	}

	chosen := s.stops[i]
	s.stop = &chosen
	s.state = HaveStop
	return chosen, nil
}

// UseStopID selects a stop by id without a location or stop search.
func (s *Session) UseStopID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.fail(fmt.Errorf("empty stop id: %w", ErrInvalidInput))
	}

	chosen := models.StopDescriptor{ID: &id}
	for _, d := range s.stops {
		if d.HasID() && *d.ID == id {
			chosen = d
			break
		}
	}
	s.stop = &chosen
	s.state = HaveStop
	return nil
}

// Departures fetches the realtime lines of the chosen stop, keeps those
// matching lineFilter (all when empty) and normalizes their arrivals.
//
// A stop without an id fails with ErrUnresolvableStop before any upstream
// call, which is distinct from ErrNoRealtimeLines.
func (s *Session) Departures(ctx context.Context, lineFilter string) ([]models.LineView, error) {
	if s.stop == nil {
		return nil, s.fail(fmt.Errorf("no stop selected: %w", ErrUnresolvableStop))
	}
	if !s.stop.HasID() {
		return nil, s.fail(fmt.Errorf("stop %q: %w", s.stop.Name, ErrUnresolvableStop))
	}
	stopID := *s.stop.ID

	records := s.opts.Lines.RealtimeLines(s.context(ctx), stopID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, s.fail(fmt.Errorf("stop %s: %w", stopID, ErrNoRealtimeLines))
	}

	records = lines.Filter(records, lineFilter, s.opts.Aliases)
	if len(records) == 0 {
		return nil, s.fail(fmt.Errorf("stop %s, line %s: %w", stopID, lineFilter, ErrNoMatchingLines))
	}

	views := make([]models.LineView, 0, len(records))
	for _, record := range records {
		views = append(views, s.view(record))
	}

	s.state = Done
	return views, nil
}

func (s *Session) view(record models.RawRecord) models.LineView {
	summary := lines.Summarize(record, s.opts.Aliases)
	display := s.opts.Normalizer.Normalize(record)
	metrics.ArrivalTimeSource.WithLabelValues(display.Source).Inc()

	return models.LineView{
		Number:        summary.Number,
		Destination:   summary.Destination,
		Operator:      summary.Operator,
		Summary:       summary.Format(nil),
		Arrival:       display.String(),
		ArrivalInline: display.WithDistance(),
		Distance:      display.Distance,
		Raw:           record,
	}
}

// context tags ctx with the session id for upstream logging and Sentry.
func (s *Session) context(ctx context.Context) context.Context {
	return report.WithSessionID(ctx, s.ID)
}

func (s *Session) fail(err error) error {
	kind := KindOf(err)
	metrics.FlowFailures.WithLabelValues(string(kind)).Inc()
	s.logger.Debug("flow step failed", "state", s.state.String(), "kind", kind, "error", err)
	return err
}
