package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"busnear.dev/internal/models"
)

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks whether the given latitude and longitude are within the bounding box
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ServiceArea roughly covers Israel and the West Bank, the area served by
// the bus.gov.il passenger information API.
var ServiceArea = BoundingBox{
	MinLat: 29.45,
	MaxLat: 33.35,
	MinLon: 34.20,
	MaxLon: 35.90,
}

// ComputeBoundingBox computes the bounding box of a set of positions.
func ComputeBoundingBox(points []models.Coordinates) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("no points to compute bounding box")
	}

	box := BoundingBox{
		MinLat: math.MaxFloat64,
		MaxLat: -math.MaxFloat64,
		MinLon: math.MaxFloat64,
		MaxLon: -math.MaxFloat64,
	}

	for _, p := range points {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
	}

	return box, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
//
// Note: This function treats the coordinate (0,0) as invalid, even though it
// is a valid location in the Gulf of Guinea. Upstream records use (0,0) for
// unset positions.
func IsValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// earthRadiusInMeters represents the mean radius of the Earth in meters.
//
// This value (6,371,000 meters) is defined as the Earth's volumetric mean radius,
// which is commonly used for general geospatial calculations and spherical approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// HaversineDistance returns the great-circle distance in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}

// CellLevel is the S2 level used to bucket stops, roughly 1 km across.
const CellLevel = 13

// CellID returns the level-CellLevel S2 cell containing the position.
func CellID(lat, lon float64) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(CellLevel)
}

// CoveringCells returns the level-CellLevel cells that together cover a
// circle of radiusMeters around the position.
func CoveringCells(lat, lon float64, radiusMeters float64) []s2.CellID {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	angle := s1.Angle(radiusMeters / earthRadiusInMeters)
	region := s2.CapFromCenterAngle(center, angle)

	coverer := &s2.RegionCoverer{MinLevel: CellLevel, MaxLevel: CellLevel, MaxCells: 64}
	return coverer.Covering(region)
}
