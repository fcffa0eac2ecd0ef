package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"busnear.dev/internal/flow"
)

// Exit codes of the busnear command.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitUserInput = 2
)

// OneShot runs a flow.Plan and renders what it produced.
type OneShot struct {
	Renderer *Renderer
	Err      io.Writer
}

// Run executes plan on session and returns the process exit code.
//
// "Nothing found" outcomes (no stops, no realtime lines, no matching line)
// are informational and exit 0. Bad input and stops without an id exit 2.
func (o *OneShot) Run(ctx context.Context, session *flow.Session, plan flow.Plan) int {
	res, err := flow.Run(ctx, session, plan)

	if res.StopsListed {
		// with --first-stop the listing is only shown as text
		if !(o.Renderer.JSON && plan.FirstStop) {
			if rerr := o.Renderer.Stops(res.Stops, res.Radius); rerr != nil {
				return o.fail(rerr)
			}
		}
		if res.Chosen != nil {
			o.Renderer.SelectedStop(*res.Chosen)
		}
	}

	if res.LinesQueried && (err == nil || errors.Is(err, flow.ErrNoRealtimeLines) || errors.Is(err, flow.ErrNoMatchingLines)) {
		if rerr := o.Renderer.Lines(res.StopID, res.Lines); rerr != nil {
			return o.fail(rerr)
		}
		return ExitOK
	}

	if err != nil {
		return o.fail(err)
	}
	return ExitOK
}

func (o *OneShot) fail(err error) int {
	if errors.Is(err, context.Canceled) {
		return ExitOK
	}
	fmt.Fprintln(o.Err, Message(err))

	switch flow.KindOf(err) {
	case flow.KindUserInputInvalid, flow.KindUnresolvableStop, flow.KindNotFound:
		return ExitUserInput
	default:
		return ExitError
	}
}

// Message is the user-facing text for a flow error.
func Message(err error) string {
	switch {
	case errors.Is(err, flow.ErrNoGeocodeResults):
		return "No address results"
	case errors.Is(err, flow.ErrIndexOutOfRange):
		return "address-index out of range"
	case errors.Is(err, flow.ErrNeedLocation):
		return "Need --address or --lat/--lon for stop lookup"
	case errors.Is(err, flow.ErrLineWithoutStop):
		return "Line filter specified but no stop id context"
	case errors.Is(err, flow.ErrUnresolvableStop):
		return "Can't determine stop id."
	default:
		return err.Error()
	}
}
