// Package cli is the terminal surface: the interactive prompt loop, the
// one-shot runner and their text and JSON output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"busnear.dev/internal/fields"
	"busnear.dev/internal/lines"
	"busnear.dev/internal/models"
)

// Renderer writes results to Out as text or, when JSON is set, as one JSON
// document per call.
type Renderer struct {
	Out     io.Writer
	JSON    bool
	Shape   Shaper
	Aliases fields.Aliases
}

type stopJSON struct {
	Index    int     `json:"index"`
	ID       *string `json:"id"`
	Name     string  `json:"name"`
	Distance any     `json:"distance"`
}

type stopsJSON struct {
	Count  int        `json:"count"`
	Radius int        `json:"radius"`
	Stops  []stopJSON `json:"stops"`
}

type lineJSON struct {
	Line        string           `json:"line"`
	Number      string           `json:"number"`
	Destination string           `json:"destination"`
	Operator    string           `json:"operator"`
	Arrival     string           `json:"arrival"`
	Distance    string           `json:"distance"`
	Raw         models.RawRecord `json:"raw"`
}

type linesJSON struct {
	StopID string     `json:"stop_id"`
	Lines  []lineJSON `json:"lines"`
}

func (r *Renderer) shape(s string) string {
	if r.Shape == nil {
		return s
	}
	return r.Shape(s)
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.Out)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Candidates lists geocoding results as "[i] label".
func (r *Renderer) Candidates(candidates []models.GeocodeCandidate) {
	for i, c := range candidates {
		fmt.Fprintf(r.Out, "[%d] %s\n", i, r.shape(c.Label))
	}
}

// Stops lists stops found within radius meters.
func (r *Renderer) Stops(stops []models.StopDescriptor, radius int) error {
	if r.JSON {
		out := stopsJSON{Count: len(stops), Radius: radius, Stops: make([]stopJSON, 0, len(stops))}
		for i, d := range stops {
			distance, _ := fields.Present(d.Raw, r.Aliases.StopDistance...)
			out.Stops = append(out.Stops, stopJSON{Index: i, ID: d.ID, Name: d.Name, Distance: distance})
		}
		return r.writeJSON(out)
	}

	if len(stops) == 0 {
		fmt.Fprintln(r.Out, "No stops found.")
		return nil
	}

	fmt.Fprintf(r.Out, "Found %d stops within %dm:\n\n", len(stops), radius)
	for i, d := range stops {
		dist := ""
		if d.DistanceText != "" {
			dist = fmt.Sprintf(" - %sm", d.DistanceText)
		}
		fmt.Fprintf(r.Out, "[%d] %s (ID: %s)%s\n", i, r.shape(d.Name), d.IDOr("?"), dist)
	}
	return nil
}

// SelectedStop announces the stop picked automatically.
func (r *Renderer) SelectedStop(d models.StopDescriptor) {
	if r.JSON {
		return
	}
	fmt.Fprintf(r.Out, "Selected nearest stop: %s (ID: %s)\n", r.shape(d.Name), d.IDOr("?"))
}

// Lines lists the realtime lines of stopID. An empty list is rendered as
// "No realtime lines." or as an empty JSON array.
func (r *Renderer) Lines(stopID string, views []models.LineView) error {
	if r.JSON {
		out := linesJSON{StopID: stopID, Lines: make([]lineJSON, 0, len(views))}
		for _, v := range views {
			out.Lines = append(out.Lines, lineJSON{
				Line:        v.Summary,
				Number:      v.Number,
				Destination: v.Destination,
				Operator:    v.Operator,
				Arrival:     v.Arrival,
				Distance:    v.Distance,
				Raw:         v.Raw,
			})
		}
		return r.writeJSON(out)
	}

	if len(views) == 0 {
		fmt.Fprintln(r.Out, "No realtime lines.")
		return nil
	}

	fmt.Fprintf(r.Out, "Lines at stop %s:\n", stopID)
	for _, v := range views {
		summary := lines.Summary{Number: v.Number, Destination: v.Destination, Operator: v.Operator}
		fmt.Fprintf(r.Out, " - %s [%s]\n", summary.Format(r.Shape), v.ArrivalInline)
	}
	return nil
}
