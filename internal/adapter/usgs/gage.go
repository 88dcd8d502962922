package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/apiclient"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
)

// gageHeightParameter is the USGS parameter code for gage height in feet.
const gageHeightParameter = "00065"

// GageClient reads daily gage height values for a station.
type GageClient struct {
	api     *apiclient.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger

	rateLimitOnce sync.Once
}

// NewGageClient creates a daily-values client.
func NewGageClient(baseURL, apiKey string, rateLimitWait time.Duration, logger *slog.Logger, metrics *observability.Metrics) *GageClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GageClient{
		api: apiclient.New(apiclient.Config{
			Name:          "usgs_gage",
			Timeout:       20 * time.Second,
			RateLimitWait: rateLimitWait,
		}, logger, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

// GageHeight returns the first daily gage height reported for stationID on
// date, or nil when the station has no value that day.
func (c *GageClient) GageHeight(ctx context.Context, stationID string, date time.Time) (*float64, error) {
	params := url.Values{
		"monitoring_location_id": {"USGS-" + stationID},
		"parameter_code":         {gageHeightParameter},
		"time":                   {date.Format(time.DateOnly)},
		"limit":                  {"1"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	resp, err := c.api.Get(ctx, c.baseURL+"/collections/daily/items", params)
	if err != nil {
		return nil, fmt.Errorf("get gage height for %s: %w", stationID, err)
	}
	c.rateLimitOnce.Do(func() {
		limit := resp.Header.Get("X-RateLimit-Limit")
		remaining := resp.Header.Get("X-RateLimit-Remaining")
		if limit != "" && remaining != "" {
			c.logger.Info("usgs api rate limit",
				"remaining", remaining,
				"limit", limit,
				"api_key", c.apiKey != "",
			)
		}
	})

	var body struct {
		Features []struct {
			Properties struct {
				Value json.RawMessage `json:"value"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode gage height for %s: %w", stationID, err)
	}
	if len(body.Features) == 0 {
		return nil, nil
	}
	v, err := apiclient.ParseNumber(body.Features[0].Properties.Value)
	if err != nil {
		return nil, fmt.Errorf("gage height for %s: %w", stationID, err)
	}
	return v, nil
}
