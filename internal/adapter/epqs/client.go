// Package epqs reads ground elevation from the USGS Elevation Point Query Service.
package epqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/apiclient"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

// DefaultEndpoint is the EPQS v1 JSON endpoint.
const DefaultEndpoint = "https://epqs.nationalmap.gov/v1/json"

// ErrUnexpectedResponse is returned when neither value field is present.
var ErrUnexpectedResponse = errors.New("unexpected elevation response")

// Client queries point elevations in meters.
type Client struct {
	api      *apiclient.Client
	endpoint string
}

// NewClient creates an EPQS client.
func NewClient(endpoint string, rateLimitWait time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		api: apiclient.New(apiclient.Config{
			Name:          "epqs",
			Timeout:       10 * time.Second,
			RateLimitWait: rateLimitWait,
		}, logger, metrics),
		endpoint: endpoint,
	}
}

// Elevation returns the ground elevation at (lat, lon). The service has
// reported the value as "value" and, in older versions, "elevation".
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (*float64, error) {
	params := url.Values{
		"x":           {strconv.FormatFloat(lon, 'f', -1, 64)},
		"y":           {strconv.FormatFloat(lat, 'f', -1, 64)},
		"units":       {"Meters"},
		"wkid":        {"4326"},
		"includeDate": {"false"},
	}
	resp, err := c.api.Get(ctx, c.endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("get elevation: %w", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode elevation: %w", err)
	}
	raw, ok := body["value"]
	if !ok {
		raw, ok = body["elevation"]
	}
	if !ok {
		return nil, ErrUnexpectedResponse
	}
	v, err := apiclient.ParseNumber(raw)
	if err != nil {
		return nil, fmt.Errorf("elevation value: %w", err)
	}
	return v, nil
}
