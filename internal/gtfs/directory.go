package gtfs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/golang/geo/s2"
	remoteGtfs "github.com/jamespfennell/gtfs"

	"busnear.dev/internal/geo"
	"busnear.dev/internal/metrics"
	"busnear.dev/internal/models"
)

// Keys of the records produced by StopDirectory. Makat carries the public
// stop code, which is what the realtime API expects as a stop id.
const (
	KeyMakat    = "Makat"
	KeyStopID   = "StopId"
	KeyStopCode = "StopCode"
	KeyName     = "StopName"
	KeyDistance = "Distance"
	KeyLat      = "Lat"
	KeyLon      = "Lon"
)

// upstreamName labels directory lookups in metrics.UpstreamResults.
const upstreamName = "gtfs"

type directoryStop struct {
	id, code, name string
	lat, lon       float64
}

// StopDirectory answers nearby-stop queries from a GTFS static bundle,
// without network access. It is read-only after construction and safe for
// concurrent use.
type StopDirectory struct {
	stops  []directoryStop
	cells  map[s2.CellID][]int
	bounds geo.BoundingBox
	logger *slog.Logger
}

// NewStopDirectory indexes every stop of static that has coordinates.
func NewStopDirectory(static *remoteGtfs.Static, logger *slog.Logger) *StopDirectory {
	d := &StopDirectory{
		cells:  make(map[s2.CellID][]int),
		logger: logger,
	}

	var positions []models.Coordinates
	for _, stop := range static.Stops {
		if stop.Latitude == nil || stop.Longitude == nil {
			continue
		}
		lat, lon := *stop.Latitude, *stop.Longitude
		if !geo.IsValidLatLon(lat, lon) {
			continue
		}

		d.stops = append(d.stops, directoryStop{
			id:   stop.Id,
			code: stop.Code,
			name: stop.Name,
			lat:  lat,
			lon:  lon,
		})
		cell := geo.CellID(lat, lon)
		d.cells[cell] = append(d.cells[cell], len(d.stops)-1)
		positions = append(positions, models.Coordinates{Lat: lat, Lon: lon})
	}

	if box, err := geo.ComputeBoundingBox(positions); err == nil {
		d.bounds = box
	}

	metrics.DirectoryStops.Set(float64(len(d.stops)))
	logger.Info("offline stop directory ready", "stops", len(d.stops), "cells", len(d.cells))
	return d
}

// Len returns the number of indexed stops.
func (d *StopDirectory) Len() int {
	return len(d.stops)
}

// Bounds returns the box enclosing every indexed stop.
func (d *StopDirectory) Bounds() geo.BoundingBox {
	return d.bounds
}

// NearbyStops returns records for the stops within radiusMeters of
// (lat, lon), nearest first. Records use the same key vocabulary as the
// realtime API so they flow through the same field aliases.
func (d *StopDirectory) NearbyStops(ctx context.Context, lat, lon float64, radiusMeters int) []models.RawRecord {
	if len(d.stops) == 0 || radiusMeters <= 0 || ctx.Err() != nil {
		return nil
	}

	type hit struct {
		index    int
		distance float64
	}
	var hits []hit
	for _, cell := range geo.CoveringCells(lat, lon, float64(radiusMeters)) {
		for _, i := range d.cells[cell] {
			s := d.stops[i]
			dist := geo.HaversineDistance(lat, lon, s.lat, s.lon)
			if dist <= float64(radiusMeters) {
				hits = append(hits, hit{index: i, distance: dist})
			}
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].distance < hits[b].distance
	})

	records := make([]models.RawRecord, 0, len(hits))
	for _, h := range hits {
		records = append(records, d.stops[h.index].record(h.distance))
	}

	metrics.UpstreamResults.WithLabelValues(upstreamName, outcome(len(records))).Inc()
	return records
}

func (s directoryStop) record(distance float64) models.RawRecord {
	makat := s.code
	if makat == "" {
		makat = s.id
	}
	return models.RawRecord{
		KeyMakat:    makat,
		KeyStopID:   s.id,
		KeyStopCode: s.code,
		KeyName:     s.name,
		KeyDistance: json.Number(strconv.Itoa(int(math.Round(distance)))),
		KeyLat:      json.Number(strconv.FormatFloat(s.lat, 'f', -1, 64)),
		KeyLon:      json.Number(strconv.FormatFloat(s.lon, 'f', -1, 64)),
	}
}

func outcome(n int) string {
	if n == 0 {
		return metrics.OutcomeEmpty
	}
	return metrics.OutcomeOK
}
