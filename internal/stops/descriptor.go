// Package stops builds normalized descriptors from raw stop records and
// orders them by distance.
package stops

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"busnear.dev/internal/fields"
	"busnear.dev/internal/models"
)

// UnknownDistance is the sort key of a stop whose distance could not be
// parsed. It is larger than any real distance so such stops sort last.
const UnknownDistance = math.MaxFloat64

// Build returns the descriptor for one raw stop record. It never fails:
// missing data yields a nil id and the fallback name.
func Build(record models.RawRecord, aliases fields.Aliases) models.StopDescriptor {
	d := models.StopDescriptor{
		Name: stopName(record, aliases),
		Raw:  record,
	}

	if id, ok := fields.OptionalString(record, aliases.StopID...); ok && id != "" {
		d.ID = &id
	}

	if raw, ok := fields.Present(record, aliases.StopDistance...); ok {
		if text, ok := fields.Text(raw); ok {
			d.DistanceText = text
			if meters, ok := parseDistance(text); ok {
				d.DistanceMeters = &meters
			}
		}
	}

	lat, latOK := number(record, aliases.StopLat)
	lon, lonOK := number(record, aliases.StopLon)
	if latOK && lonOK {
		d.Position = &models.Coordinates{Lat: lat, Lon: lon}
	}

	return d
}

// BuildAll builds one descriptor per record, preserving order.
func BuildAll(records []models.RawRecord, aliases fields.Aliases) []models.StopDescriptor {
	out := make([]models.StopDescriptor, 0, len(records))
	for _, r := range records {
		out = append(out, Build(r, aliases))
	}
	return out
}

func stopName(record models.RawRecord, aliases fields.Aliases) string {
	if name, ok := fields.OptionalString(record, aliases.StopName...); ok {
		return name
	}
	return fields.String(record, fields.UnknownStopName, aliases.StopNameFallback...)
}

func parseDistance(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func number(record models.RawRecord, keys []string) (float64, bool) {
	raw, ok := fields.Present(record, keys...)
	if !ok {
		return 0, false
	}
	text, ok := fields.Text(raw)
	if !ok {
		return 0, false
	}
	return parseDistance(text)
}

// SortKey is the value stops are ordered by.
func SortKey(d models.StopDescriptor) float64 {
	if d.DistanceMeters == nil {
		return UnknownDistance
	}
	return *d.DistanceMeters
}

// Sort orders descriptors by ascending distance in place. Stops with a known
// distance always precede stops without one; ties keep their upstream order.
func Sort(ds []models.StopDescriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i].DistanceMeters, ds[j].DistanceMeters
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}

// Limit truncates ds to at most n entries. n <= 0 means unlimited.
func Limit(ds []models.StopDescriptor, n int) []models.StopDescriptor {
	if n <= 0 || len(ds) <= n {
		return ds
	}
	return ds[:n]
}
