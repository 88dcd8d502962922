// Package noaa reads daily precipitation totals from NOAA Climate Data Online.
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/apiclient"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

// DefaultEndpoint is the CDO v2 data endpoint.
const DefaultEndpoint = "https://www.ncdc.noaa.gov/cdo-web/api/v2/data"

// boxHalfWidth is the bounding box half-size in degrees around the query point.
const boxHalfWidth = 0.25

// Client queries GHCND daily precipitation.
type Client struct {
	api      *apiclient.Client
	endpoint string
}

// NewClient creates a CDO client authenticated with token.
func NewClient(endpoint, token string, rateLimitWait time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		api: apiclient.New(apiclient.Config{
			Name:          "noaa",
			Timeout:       10 * time.Second,
			RateLimitWait: rateLimitWait,
			Headers:       map[string]string{"token": token},
		}, logger, metrics),
		endpoint: endpoint,
	}
}

// Precipitation sums the PRCP observations (mm) of every station inside a
// half-degree box around (lat, lon) for the day before date through date.
// An empty result sums to zero.
func (c *Client) Precipitation(ctx context.Context, lat, lon float64, date time.Time) (*float64, error) {
	params := url.Values{
		"datasetid":  {"GHCND"},
		"datatypeid": {"PRCP"},
		"startdate":  {date.AddDate(0, 0, -1).Format(time.DateOnly)},
		"enddate":    {date.Format(time.DateOnly)},
		"units":      {"metric"},
		"limit":      {"1000"},
		"extent": {fmt.Sprintf("%g,%g,%g,%g",
			lat-boxHalfWidth, lon-boxHalfWidth, lat+boxHalfWidth, lon+boxHalfWidth)},
	}
	resp, err := c.api.Get(ctx, c.endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("get precipitation: %w", err)
	}

	var body struct {
		Results []struct {
			Value float64 `json:"value"`
		} `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode precipitation: %w", err)
	}
	var total float64
	for _, r := range body.Results {
		total += r.Value
	}
	return &total, nil
}
