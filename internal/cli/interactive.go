package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"busnear.dev/internal/flow"
)

// errQuit ends the interactive loop normally.
var errQuit = errors.New("quit")

// lineReader delivers input lines on a channel so that a prompt can be
// abandoned when the context is cancelled. The scanning goroutine stops
// once ctx is done; a read already blocked on in finishes first.
type lineReader struct {
	lines chan string
}

func newLineReader(ctx context.Context, in io.Reader) *lineReader {
	r := &lineReader{lines: make(chan string)}
	go func() {
		defer close(r.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case r.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return r
}

func (r *lineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// Interactive is the prompt loop: pick an address, then repeatedly list
// nearby stops and show the lines of one of them.
type Interactive struct {
	Session  *flow.Session
	Renderer *Renderer
	In       io.Reader
	Radius   int

	reader *lineReader
}

// Run drives the loop until the user quits, input ends or ctx is cancelled.
// Only cancellation is returned as an error.
func (it *Interactive) Run(ctx context.Context) error {
	it.reader = newLineReader(ctx, it.In)

	err := it.promptAddress(ctx)
	for err == nil {
		it.printf("\nMenu: 1) Nearby stops 2) Change address 3) Quit\n")
		var choice string
		choice, err = it.ask(ctx, "> ")
		if err != nil {
			break
		}

		switch strings.ToLower(choice) {
		case "1":
			err = it.nearbyStops(ctx)
		case "2":
			err = it.promptAddress(ctx)
		case "3", "q", "quit", "exit":
			err = errQuit
		default:
			it.printf("Unknown option.\n")
		}
	}

	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (it *Interactive) promptAddress(ctx context.Context) error {
	for {
		query, err := it.ask(ctx, "Search address (or blank to quit): ")
		if err != nil {
			return err
		}
		if query == "" {
			return errQuit
		}

		candidates, err := it.Session.SearchAddress(ctx, query)
		if errors.Is(err, flow.ErrNoGeocodeResults) {
			it.printf("No results. Try again.\n")
			continue
		}
		if err != nil {
			return err
		}

		it.Renderer.Candidates(candidates)
		return it.pickAddress(ctx)
	}
}

// pickAddress asks for a candidate index until a valid one is entered.
func (it *Interactive) pickAddress(ctx context.Context) error {
	for {
		choice, err := it.ask(ctx, "Pick address #: ")
		if err != nil {
			return err
		}
		if index, convErr := strconv.Atoi(choice); convErr == nil {
			if _, err := it.Session.PickAddress(index); err == nil {
				return nil
			}
		}
		it.printf("Invalid choice.\n")
	}
}

func (it *Interactive) nearbyStops(ctx context.Context) error {
	radius := it.Radius
	answer, err := it.ask(ctx, fmt.Sprintf("Radius meters (default %d): ", it.Radius))
	if err != nil {
		return err
	}
	if answer != "" {
		if r, convErr := strconv.Atoi(answer); convErr == nil {
			radius = r
		}
	}

	found, err := it.Session.FindStops(ctx, radius)
	if err != nil {
		return err
	}
	if err := it.Renderer.Stops(found, it.Session.Radius()); err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}

	pick, err := it.ask(ctx, "Pick stop # to view lines (blank to return): ")
	if err != nil {
		return err
	}
	index, convErr := strconv.Atoi(pick)
	if convErr != nil || index < 0 {
		return nil
	}
	stop, err := it.Session.PickStop(index)
	if err != nil {
		return nil
	}

	views, err := it.Session.Departures(ctx, "")
	switch {
	case errors.Is(err, flow.ErrUnresolvableStop):
		it.printf("%s\n", Message(err))
		return nil
	case errors.Is(err, flow.ErrNoRealtimeLines), errors.Is(err, flow.ErrNoMatchingLines):
		return it.Renderer.Lines(stop.IDOr(""), nil)
	case err != nil:
		return err
	}
	return it.Renderer.Lines(stop.IDOr(""), views)
}

func (it *Interactive) ask(ctx context.Context, prompt string) (string, error) {
	it.printf("%s", prompt)
	return it.reader.ReadLine(ctx)
}

func (it *Interactive) printf(format string, args ...any) {
	fmt.Fprintf(it.Renderer.Out, format, args...)
}
