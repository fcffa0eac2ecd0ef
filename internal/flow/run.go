package flow

import (
	"context"

	"busnear.dev/internal/models"
)

// Plan holds the pre-supplied answers of a one-shot run.
type Plan struct {
	Address      string
	AddressIndex int
	Lat, Lon     *float64

	Radius     int
	LimitStops int
	ListStops  bool
	FirstStop  bool

	StopID string
	Line   string
}

// HasCoordinates reports whether both --lat and --lon were given.
func (p Plan) HasCoordinates() bool {
	return p.Lat != nil && p.Lon != nil
}

// Empty reports whether the plan asks for nothing, in which case the caller
// runs the interactive loop instead.
func (p Plan) Empty() bool {
	return p.Address == "" && p.Lat == nil && p.Lon == nil && p.StopID == "" &&
		!p.FirstStop && !p.ListStops && p.Line == ""
}

// Result is what a one-shot run produced, for rendering. Fields are set as
// far as the run got, also when Run returns an error.
type Result struct {
	Address *models.GeocodeCandidate

	// StopsListed is true when a stop lookup ran, even if it found nothing.
	StopsListed bool
	Stops       []models.StopDescriptor
	Radius      int

	// Chosen is the nearest stop picked by --first-stop.
	Chosen *models.StopDescriptor

	// LinesQueried is true when a realtime-line lookup was attempted.
	LinesQueried bool
	StopID       string
	Lines        []models.LineView
}

// Run walks s through the same states as the interactive loop, taking every
// answer from p:
//
//   - coordinates win over an address; an address picks p.AddressIndex
//   - listing or picking a stop needs a location
//   - --list-stops without --first-stop stops after the listing
//   - --stop-id overrides the picked stop
//   - a line filter without any stop is an error
func Run(ctx context.Context, s *Session, p Plan) (*Result, error) {
	res := &Result{}

	switch {
	case p.HasCoordinates():
		if err := s.SetCoordinates(*p.Lat, *p.Lon); err != nil {
			return res, err
		}
	case p.Address != "":
		if _, err := s.SearchAddress(ctx, p.Address); err != nil {
			return res, err
		}
		c, err := s.PickAddress(p.AddressIndex)
		if err != nil {
			return res, err
		}
		res.Address = &c
	}

	if p.ListStops || p.FirstStop {
		if _, ok := s.Location(); !ok {
			return res, s.fail(ErrNeedLocation)
		}
		if p.LimitStops > 0 {
			s.SetStopLimit(p.LimitStops)
		}

		found, err := s.FindStops(ctx, p.Radius)
		if err != nil {
			return res, err
		}
		res.StopsListed = true
		res.Stops = found
		res.Radius = s.Radius()

		if p.FirstStop && len(found) > 0 {
			chosen, err := s.PickStop(0)
			if err != nil {
				return res, err
			}
			res.Chosen = &chosen
		}
		if p.ListStops && !p.FirstStop {
			return res, nil
		}
	}

	if p.StopID != "" {
		if err := s.UseStopID(p.StopID); err != nil {
			return res, err
		}
	}

	stop, ok := s.Stop()
	if !ok {
		if p.Line != "" {
			return res, s.fail(ErrLineWithoutStop)
		}
		return res, nil
	}

	res.LinesQueried = true
	res.StopID = stop.IDOr("")
	views, err := s.Departures(ctx, p.Line)
	res.Lines = views
	return res, err
}
