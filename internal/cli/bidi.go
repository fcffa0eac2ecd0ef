package cli

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// Shaper prepares a string for display on a terminal.
type Shaper func(string) string

// NewShaper returns VisualOrder when enabled, and the identity otherwise.
func NewShaper(enabled bool) Shaper {
	if !enabled {
		return func(s string) string { return s }
	}
	return VisualOrder
}

// VisualOrder reorders right-to-left runs (Hebrew, Arabic) into visual
// order for terminals without bidi support. Strings without RTL text are
// returned unchanged, as is any string the bidi package cannot order.
func VisualOrder(s string) (out string) {
	if !hasRTL(s) {
		return s
	}

	// Paragraph.Order is incomplete upstream and can panic on exotic input.
	defer func() {
		if recover() != nil {
			out = s
		}
	}()

	var p bidi.Paragraph
	if _, err := p.SetString(s); err != nil {
		return s
	}
	ordering, err := p.Order()
	if err != nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		if run.Direction() == bidi.RightToLeft {
			b.WriteString(bidi.ReverseString(run.String()))
		} else {
			b.WriteString(run.String())
		}
	}
	return b.String()
}

func hasRTL(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hebrew, unicode.Arabic) {
			return true
		}
	}
	return false
}
