package usgs

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/apiclient"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const stationsBody = `{
  "numberReturned": 4,
  "features": [
    {"geometry": {"type": "Point", "coordinates": [-97.6944, 30.2441]}, "properties": {"monitoring_location_number": "08158000"}},
    {"geometry": null, "properties": {"monitoring_location_number": "08158001"}},
    {"geometry": {"type": "Point", "coordinates": ["bad", 30.0]}, "properties": {"monitoring_location_number": "08158002"}},
    {"geometry": {"type": "Point", "coordinates": [-95.3698, 29.7604]}, "properties": {"monitoring_location_number": "08074000"}}
  ]
}`

func TestStations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/monitoring-locations/items", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "48", q.Get("state_code"))
		assert.Equal(t, "ST", q.Get("site_type_code"))
		assert.Equal(t, "5000", q.Get("limit"))
		assert.Equal(t, "key", q.Get("api_key"))
		_, _ = w.Write([]byte(stationsBody))
	}))
	defer srv.Close()

	c := NewStationsClient(srv.URL, "key", time.Millisecond, discardLogger(), nil)
	stations, returned, err := c.Stations(context.Background(), "48")

	require.NoError(t, err)
	assert.Equal(t, 4, returned)
	assert.Equal(t, []domain.Station{
		{ID: "08158000", Lat: 30.2441, Lon: -97.6944},
		{ID: "08074000", Lat: 29.7604, Lon: -95.3698},
	}, stations)
}

func TestStations_NoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["api_key"]
		assert.False(t, ok)
		_, _ = w.Write([]byte(`{"numberReturned": 0, "features": []}`))
	}))
	defer srv.Close()

	stations, returned, err := NewStationsClient(srv.URL, "", time.Millisecond, discardLogger(), nil).
		Stations(context.Background(), "06")

	require.NoError(t, err)
	assert.Zero(t, returned)
	assert.Empty(t, stations)
}

func TestStations_MissingNumberReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": [{"geometry": {"type": "Point", "coordinates": [-90, 30]}, "properties": {"monitoring_location_number": "1"}}]}`))
	}))
	defer srv.Close()

	_, returned, err := NewStationsClient(srv.URL, "", time.Millisecond, discardLogger(), nil).
		Stations(context.Background(), "22")

	require.NoError(t, err)
	assert.Equal(t, 1, returned)
}

func TestStations_RateLimitedTwice(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, _, err := NewStationsClient(srv.URL, "", time.Millisecond, discardLogger(), nil).
		Stations(context.Background(), "48")

	require.ErrorIs(t, err, apiclient.ErrRateLimited)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStations_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, _, err := NewStationsClient(srv.URL, "", time.Millisecond, discardLogger(), nil).
		Stations(context.Background(), "48")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode stations")
}

func TestGageHeight(t *testing.T) {
	day := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		body string
		want *float64
	}{
		{"numeric", `{"features": [{"properties": {"value": 3.2}}, {"properties": {"value": 9.9}}]}`, ptr(3.2)},
		{"string", `{"features": [{"properties": {"value": "4.75"}}]}`, ptr(4.75)},
		{"null value", `{"features": [{"properties": {"value": null}}]}`, nil},
		{"no features", `{"features": []}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/collections/daily/items", r.URL.Path)
				q := r.URL.Query()
				assert.Equal(t, "USGS-08158000", q.Get("monitoring_location_id"))
				assert.Equal(t, "00065", q.Get("parameter_code"))
				assert.Equal(t, "2023-05-10", q.Get("time"))
				assert.Equal(t, "1", q.Get("limit"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewGageClient(srv.URL, "", time.Millisecond, discardLogger(), nil).
				GageHeight(context.Background(), "08158000", day)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGageHeight_LogsRateLimitOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "1000")
		w.Header().Set("X-RateLimit-Remaining", "998")
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := NewGageClient(srv.URL, "key", time.Millisecond, logger, nil)

	for range 3 {
		_, err := c.GageHeight(context.Background(), "1", time.Now())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "usgs api rate limit"))
	assert.Contains(t, buf.String(), "remaining=998")
}

func TestGageHeight_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewGageClient(srv.URL, "", time.Millisecond, discardLogger(), nil).
		GageHeight(context.Background(), "1", time.Now())

	var se *apiclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func ptr(v float64) *float64 { return &v }
