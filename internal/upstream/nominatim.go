package upstream

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"busnear.dev/internal/fields"
	"busnear.dev/internal/metrics"
	"busnear.dev/internal/models"
)

// Nominatim geocodes free-text addresses with an OpenStreetMap Nominatim
// instance. The public instance requires an identifying User-Agent.
type Nominatim struct {
	URL            string
	UserAgent      string
	AcceptLanguage string
	Client         *http.Client
	Logger         *slog.Logger
}

func NewNominatim(searchURL, userAgent, acceptLanguage string, client *http.Client, logger *slog.Logger) *Nominatim {
	return &Nominatim{
		URL:            searchURL,
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguage,
		Client:         client,
		Logger:         logger,
	}
}

// Geocode returns up to limit candidates for query. An empty query returns
// nothing without contacting the geocoder.
func (n *Nominatim) Geocode(ctx context.Context, query string, limit int) []models.GeocodeCandidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))
	if n.AcceptLanguage != "" {
		params.Set("accept-language", n.AcceptLanguage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.URL+"?"+params.Encode(), nil)
	if err != nil {
		fail(ctx, n.Logger, UpstreamGeocoder, metrics.OutcomeRequestError, n.URL, 0, err)
		return nil
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	records := fetchList(ctx, n.Client, req, UpstreamGeocoder, n.Logger)

	candidates := make([]models.GeocodeCandidate, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, Candidate(record))
	}
	return candidates
}

// Candidate converts one Nominatim result into a GeocodeCandidate.
// Nominatim sends lat/lon as strings; unparseable values leave
// HasCoordinates false rather than dropping the result.
func Candidate(record models.RawRecord) models.GeocodeCandidate {
	c := models.GeocodeCandidate{
		Label:       AddressLabel(record),
		DisplayName: fields.String(record, "", "display_name"),
		Raw:         record,
	}

	lat, latOK := parseCoordinate(record["lat"])
	lon, lonOK := parseCoordinate(record["lon"])
	if latOK && lonOK {
		c.Coordinates = models.Coordinates{Lat: lat, Lon: lon}
		c.HasCoordinates = true
	}
	return c
}

// AddressLabel renders "road house_number, city" from the address details,
// using the town when there is no city. It falls back to the display name
// when the address details are empty.
func AddressLabel(record models.RawRecord) string {
	address, _ := record["address"].(map[string]any)
	details := models.RawRecord(address)

	var parts []string
	for _, key := range []string{"road", "house_number"} {
		if v := fields.String(details, "", key); v != "" {
			parts = append(parts, v)
		}
	}
	label := strings.TrimSpace(strings.Join(parts, " "))

	if city := fields.String(details, "", "city", "town"); city != "" {
		if label == "" {
			label = city
		} else {
			label = label + ", " + city
		}
	}

	if label == "" {
		label = fields.String(record, "", "display_name")
	}
	return label
}

func parseCoordinate(v any) (float64, bool) {
	text, ok := fields.Text(v)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
