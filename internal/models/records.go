package models

// RawRecord is a decoded upstream JSON object. Key presence and casing vary
// between upstream API versions, so values are only ever read through the
// fields package. Numbers are decoded as json.Number to keep their textual form.
type RawRecord map[string]any

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StopDescriptor is the normalized, read-only view of a raw stop record.
//
// ID is nil when no identifier could be extracted from the record. Such a
// descriptor can still be listed but can never be used for a realtime-line
// lookup; callers must not synthesize an id for it.
type StopDescriptor struct {
	ID             *string
	Name           string
	DistanceMeters *float64
	// DistanceText is the distance value exactly as the upstream sent it.
	DistanceText string
	Position     *Coordinates
	Raw          RawRecord
}

// HasID reports whether the stop can be queried for realtime lines.
func (s StopDescriptor) HasID() bool {
	return s.ID != nil && *s.ID != ""
}

// IDOr returns the stop id, or fallback when the stop has none.
func (s StopDescriptor) IDOr(fallback string) string {
	if !s.HasID() {
		return fallback
	}
	return *s.ID
}

// GeocodeCandidate is one result of an address search.
type GeocodeCandidate struct {
	Coordinates
	// HasCoordinates is false when the upstream lat/lon could not be parsed.
	HasCoordinates bool
	Label          string
	DisplayName    string
	Raw            RawRecord
}

// LineView is the rendering-ready projection of one realtime line record.
type LineView struct {
	Number      string
	Destination string
	Operator    string
	Summary     string

	// Arrival is the minutes and time segments; ArrivalInline also carries
	// the distance segment between them.
	Arrival       string
	ArrivalInline string
	Distance      string
	Raw           RawRecord
}
