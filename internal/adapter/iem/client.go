// Package iem queries the Iowa Environmental Mesonet VTEC event archive for
// historical flood events issued by a weather forecast office.
package iem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/apiclient"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

// DefaultEndpoint is the VTEC events JSON service.
const DefaultEndpoint = "https://mesonet.agron.iastate.edu/json/vtec_events.py"

// floodPhenomenon is the VTEC phenomenon code for floods.
const floodPhenomenon = "FL"

// Client fetches VTEC flood events.
type Client struct {
	api      *apiclient.Client
	endpoint string
	logger   *slog.Logger
}

// NewClient creates an IEM client. rateLimitWait is the pause before the single
// retry on HTTP 429.
func NewClient(endpoint string, rateLimitWait time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		api: apiclient.New(apiclient.Config{
			Name:          "iem",
			Timeout:       30 * time.Second,
			RateLimitWait: rateLimitWait,
		}, logger, metrics),
		endpoint: endpoint,
		logger:   logger,
	}
}

// FloodEvents returns every flood event the office issued in year. Events
// that fail to decode are logged and skipped.
func (c *Client) FloodEvents(ctx context.Context, office string, year int) ([]domain.FloodEvent, error) {
	params := url.Values{
		"wfo":       {office},
		"phenomena": {floodPhenomenon},
		"year":      {strconv.Itoa(year)},
	}
	resp, err := c.api.Get(ctx, c.endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("get events for %s %d: %w", office, year, err)
	}

	var body struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode events for %s %d: %w", office, year, err)
	}

	events := make([]domain.FloodEvent, 0, len(body.Events))
	for _, raw := range body.Events {
		var e domain.FloodEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			c.logger.Warn("skipping malformed flood event", "office", office, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
