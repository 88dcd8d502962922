package iem

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFloodEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "EWX", q.Get("wfo"))
		assert.Equal(t, "FL", q.Get("phenomena"))
		assert.Equal(t, "2023", q.Get("year"))
		_, _ = w.Write([]byte(`{"events": [
			{"eventid": 12, "issue": "2023-05-10T14:00:00Z", "locations": "Travis [TX]", "ph_name": "Flood", "sig_name": "Warning", "area": 120.5},
			{"eventid": 13, "issue": 20230601, "locations": "Bexar [TX]"},
			{"eventid": 14, "issue": "2023-06-02T01:00:00Z", "locations": "Bexar [TX]", "ph_name": "Flood", "sig_name": "Advisory"}
		]}`))
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL, time.Millisecond, discardLogger(), nil).FloodEvents(context.Background(), "EWX", 2023)

	require.NoError(t, err)
	require.Len(t, events, 2, "event with a numeric issue field is skipped")
	assert.Equal(t, "Travis [TX]", events[0].Locations)
	assert.Equal(t, 120.5, events[0].AreaSqMiles)
	assert.Equal(t, "Advisory", events[1].SignificanceName)
}

func TestFloodEvents_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL, time.Millisecond, discardLogger(), nil).FloodEvents(context.Background(), "LZK", 2022)

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFloodEvents_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Millisecond, discardLogger(), nil).FloodEvents(context.Background(), "EWX", 2023)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "EWX 2023")
}
