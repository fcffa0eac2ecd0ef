// Package arrival turns the noisy realtime fields of a line record into a
// single human-facing arrival description.
//
// Every parse step degrades to "unknown" or "omit"; Normalize never fails.
package arrival

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"busnear.dev/internal/fields"
	"busnear.dev/internal/models"
)

// Separator joins the segments of a display.
const Separator = " | "

// DefaultZone is the display zone used when timezone data is available.
const DefaultZone = "Asia/Jerusalem"

// Sentinel date prefixes the upstream uses for unset timestamps.
var placeholderPrefixes = []string{"9999-", "0001-"}

// Naive layouts are interpreted in the display zone.
var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05-0700",
		"2006-01-02 15:04:05-0700",
	}
	naiveLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"}
)

// Time-source labels reported to metrics.
const (
	SourceScheduled   = "scheduled"
	SourcePlaceholder = "placeholder"
	SourceUnparseable = "unparseable"
	SourceMissing     = "missing"
)

// Display is the normalized arrival of one line. Minutes is always set;
// Time and Distance may be empty.
type Display struct {
	Minutes  string
	Time     string
	Distance string
	// Source records how Time was derived, one of the Source* labels.
	Source string
}

// Segments returns the non-empty minutes and time segments in order.
func (d Display) Segments() []string {
	return nonEmpty(d.Minutes, d.Time)
}

// String joins the minutes and time segments, e.g. "5 min | ~14:35".
func (d Display) String() string {
	return strings.Join(d.Segments(), Separator)
}

// WithDistance also includes the distance segment between minutes and time,
// for listings where distance is shown inline.
func (d Display) WithDistance() string {
	return strings.Join(nonEmpty(d.Minutes, d.Distance, d.Time), Separator)
}

// Options configures a Normalizer. Zero values fall back to the process
// local zone, time.Now and the default aliases.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	Aliases  *fields.Aliases
}

// Normalizer computes arrival displays in a fixed display zone.
type Normalizer struct {
	loc     *time.Location
	now     func() time.Time
	aliases fields.Aliases
}

// NewNormalizer creates a Normalizer from opts.
func NewNormalizer(opts Options) *Normalizer {
	n := &Normalizer{
		loc:     opts.Location,
		now:     opts.Now,
		aliases: fields.DefaultAliases(),
	}
	if n.loc == nil {
		n.loc = time.Local
	}
	if n.now == nil {
		n.now = time.Now
	}
	if opts.Aliases != nil {
		n.aliases = *opts.Aliases
	}
	return n
}

// LoadLocation returns the named zone, or the process local zone when the
// system has no timezone data for it. ok reports whether name was found.
func LoadLocation(name string) (loc *time.Location, ok bool) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local, false
	}
	return loc, true
}

// Normalize computes the display for one line record. It has no side
// effects; callers count d.Source themselves.
func (n *Normalizer) Normalize(line models.RawRecord) Display {
	minutes, known := n.minutes(line)

	d := Display{
		Minutes:  minutesText(minutes, known),
		Distance: n.distance(line),
	}

	d.Time, d.Source = n.scheduled(line, minutes, known)

	if d.Time == "" && known && minutes >= 0 {
		eta := n.now().In(n.loc).Add(time.Duration(minutes) * time.Minute)
		d.Time = "~" + eta.Format("15:04")
	}
	return d
}

func (n *Normalizer) minutes(line models.RawRecord) (int, bool) {
	raw, ok := fields.Present(line, n.aliases.MinutesToArrival...)
	if !ok {
		return 0, false
	}
	return parseInt(raw)
}

func minutesText(minutes int, known bool) string {
	switch {
	case !known:
		return "? min"
	case minutes <= 0:
		return "Due"
	case minutes == 1:
		return "1 min"
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}

// distance renders the line's distance from the stop. The upstream does not
// label the unit: values below 1000 are assumed to be meters and larger ones
// are shown in kilometers. This is inferred from observed values and is not
// a verified contract of the API.
func (n *Normalizer) distance(line models.RawRecord) string {
	raw, ok := fields.Present(line, n.aliases.LineDistance...)
	if !ok {
		return ""
	}
	v, ok := parseInt(raw)
	if !ok || v <= 0 {
		return ""
	}
	if v < 1000 {
		return fmt.Sprintf("%dm", v)
	}
	return fmt.Sprintf("%.1fkm", float64(v)/1000)
}

// scheduled returns the "HH:MM (sched)" segment, or "" when the timestamp is
// missing, a placeholder or unparseable.
func (n *Normalizer) scheduled(line models.RawRecord, minutes int, known bool) (string, string) {
	raw, ok := fields.Resolve(line, n.aliases.ScheduledArrival...)
	if !ok {
		return "", SourceMissing
	}
	ts, ok := raw.(string)
	if !ok {
		return "", SourceMissing
	}
	ts = strings.TrimSpace(ts)

	if IsPlaceholder(ts, minutes, known) {
		return "", SourcePlaceholder
	}

	t, ok := n.parse(ts)
	if !ok {
		return "", SourceUnparseable
	}
	return t.In(n.loc).Format("15:04") + " (sched)", SourceScheduled
}

// IsPlaceholder reports whether ts is an unset upstream timestamp: a
// sentinel year, or exactly midnight while a positive minutes-to-arrival is
// known. A midnight timestamp alone is not a placeholder.
func IsPlaceholder(ts string, minutes int, minutesKnown bool) bool {
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(ts, p) {
			return true
		}
	}
	return minutesKnown && minutes > 0 && timeOfDay(ts) == "00:00:00"
}

func timeOfDay(ts string) string {
	i := strings.IndexAny(ts, "T ")
	if i < 0 || len(ts) < i+9 {
		return ""
	}
	return ts[i+1 : i+9]
}

func (n *Normalizer) parse(ts string) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, ts, n.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseInt(raw any) (int, bool) {
	text, ok := fields.Text(raw)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return v, true
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
