package fields

// Aliases holds the ordered key lists tried for every canonical field. The
// upstream renames keys between API versions, so the lists are configuration
// data and can be overridden from the config file.
type Aliases struct {
	StopName         []string `yaml:"stop_name" validate:"min=1"`
	StopNameFallback []string `yaml:"stop_name_fallback" validate:"min=1"`
	StopID           []string `yaml:"stop_id" validate:"min=1"`
	StopDistance     []string `yaml:"stop_distance" validate:"min=1"`
	StopLat          []string `yaml:"stop_lat" validate:"min=1"`
	StopLon          []string `yaml:"stop_lon" validate:"min=1"`

	LineNumber       []string `yaml:"line_number" validate:"min=1"`
	Destination      []string `yaml:"destination" validate:"min=1"`
	Operator         []string `yaml:"operator" validate:"min=1"`
	MinutesToArrival []string `yaml:"minutes_to_arrival" validate:"min=1"`
	LineDistance     []string `yaml:"line_distance" validate:"min=1"`
	ScheduledArrival []string `yaml:"scheduled_arrival" validate:"min=1"`
}

// UnknownStopName is shown when a stop carries neither a name nor a code.
const UnknownStopName = "Unknown Stop"

// DefaultAliases returns the key lists observed on the bus.gov.il API.
func DefaultAliases() Aliases {
	return Aliases{
		StopName:         []string{"BusStopName", "Busstopnamehe", "Name", "name", "StopName"},
		StopNameFallback: []string{"Makat", "BusStopId"},
		StopID:           []string{"BusStopId", "Makat", "Id", "StopId", "StopCode"},
		StopDistance:     []string{"Distance", "DistanceFromStart"},
		StopLat:          []string{"Lat", "Latitude", "lat"},
		StopLon:          []string{"Lon", "Longitude", "lon"},

		LineNumber:       []string{"Shilut", "Line"},
		Destination:      []string{"DestinationName", "DestinationQuarterName"},
		Operator:         []string{"CompanyName", "CompanyHebrewName"},
		MinutesToArrival: []string{"MinutesToArrival"},
		LineDistance:     []string{"Distance"},
		ScheduledArrival: []string{"DtArrival"},
	}
}
