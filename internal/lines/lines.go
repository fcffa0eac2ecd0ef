// Package lines filters realtime line records and summarizes them for display.
package lines

import (
	"fmt"

	"busnear.dev/internal/fields"
	"busnear.dev/internal/models"
)

// Filter returns the records whose line number equals number. The
// comparison is on the textual form, so "12" does not match "012". An empty
// number disables filtering and returns records unchanged.
func Filter(records []models.RawRecord, number string, aliases fields.Aliases) []models.RawRecord {
	if number == "" {
		return records
	}
	var out []models.RawRecord
	for _, r := range records {
		if n, ok := Number(r, aliases); ok && n == number {
			out = append(out, r)
		}
	}
	return out
}

// Number returns the line number ("Shilut") of a record.
func Number(record models.RawRecord, aliases fields.Aliases) (string, bool) {
	return fields.OptionalString(record, aliases.LineNumber...)
}

// Summary is the identifying text of a line: number, destination and operator.
type Summary struct {
	Number      string
	Destination string
	Operator    string
}

// Summarize extracts the summary fields of a record, using "?" for a missing
// number or destination and an empty operator when none is known.
func Summarize(record models.RawRecord, aliases fields.Aliases) Summary {
	return Summary{
		Number:      fields.String(record, "?", aliases.LineNumber...),
		Destination: fields.String(record, "?", aliases.Destination...),
		Operator:    fields.String(record, "", aliases.Operator...),
	}
}

// Format renders the summary as "12 -> Destination (Operator)". The shape
// function is applied to the destination and operator text only.
func (s Summary) Format(shape func(string) string) string {
	if shape == nil {
		shape = func(s string) string { return s }
	}
	text := fmt.Sprintf("%s -> %s", s.Number, shape(s.Destination))
	if s.Operator != "" {
		text += fmt.Sprintf(" (%s)", shape(s.Operator))
	}
	return text
}
