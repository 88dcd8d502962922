// Package usgs fetches stream monitoring locations and daily gage heights from
// the USGS Water Data OGC API.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/apiclient"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

const (
	// DefaultBaseURL is the OGC API root shared by both collections.
	DefaultBaseURL = "https://api.waterdata.usgs.gov/ogcapi/v0"

	stationLimit = 5000
)

// StationsClient downloads stream monitoring locations per state.
type StationsClient struct {
	api     *apiclient.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewStationsClient creates a monitoring-locations client. rateLimitWait is the
// pause before the single retry on HTTP 429.
func NewStationsClient(baseURL, apiKey string, rateLimitWait time.Duration, logger *slog.Logger, metrics *observability.Metrics) *StationsClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &StationsClient{
		api: apiclient.New(apiclient.Config{
			Name:          "usgs_stations",
			Timeout:       30 * time.Second,
			RateLimitWait: rateLimitWait,
		}, logger, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Stations returns the stream stations of one state and the upstream
// numberReturned count. Features without a point geometry or an identifier
// are skipped.
func (c *StationsClient) Stations(ctx context.Context, stateCode string) ([]domain.Station, int, error) {
	params := url.Values{
		"state_code":     {stateCode},
		"site_type_code": {"ST"},
		"limit":          {strconv.Itoa(stationLimit)},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	resp, err := c.api.Get(ctx, c.baseURL+"/collections/monitoring-locations/items", params)
	if err != nil {
		return nil, 0, fmt.Errorf("get stations for state %s: %w", stateCode, err)
	}

	var body featureCollection
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, 0, fmt.Errorf("decode stations for state %s: %w", stateCode, err)
	}

	stations := make([]domain.Station, 0, len(body.Features))
	skipped := 0
	for _, raw := range body.Features {
		s, ok := parseStation(raw)
		if !ok {
			skipped++
			continue
		}
		stations = append(stations, s)
	}
	if skipped > 0 {
		c.logger.Debug("skipped malformed station features", "state", stateCode, "skipped", skipped)
	}

	returned := len(body.Features)
	if body.NumberReturned != nil {
		returned = *body.NumberReturned
	}
	return stations, returned, nil
}

func parseStation(raw json.RawMessage) (domain.Station, bool) {
	var f stationFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.Station{}, false
	}
	if f.Geometry == nil || f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
		return domain.Station{}, false
	}
	if f.Properties.MonitoringLocationNumber == "" {
		return domain.Station{}, false
	}
	return domain.Station{
		ID:  f.Properties.MonitoringLocationNumber,
		Lat: f.Geometry.Coordinates[1],
		Lon: f.Geometry.Coordinates[0],
	}, true
}

// OGC API response types.

type featureCollection struct {
	NumberReturned *int              `json:"numberReturned"`
	Features       []json.RawMessage `json:"features"`
}

type stationFeature struct {
	Geometry *struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	Properties struct {
		MonitoringLocationNumber string `json:"monitoring_location_number"`
	} `json:"properties"`
}
