package stations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/geocache"
	"github.com/couchcryptid/flood-data-etl/internal/observability"
	"github.com/couchcryptid/flood-data-etl/internal/regions"
)

const testRegions = `
regions:
  - name: Texas
    abbrev: TX
    fips: "48"
    offices: [EWX]
  - name: Oklahoma
    abbrev: OK
    fips: "40"
    offices: [OUN]
`

type fakeFetcher struct {
	byState map[string][]domain.Station
	errs    map[string]error
	calls   []string
}

func (f *fakeFetcher) Stations(_ context.Context, code string) ([]domain.Station, int, error) {
	f.calls = append(f.calls, code)
	if err := f.errs[code]; err != nil {
		return nil, 0, err
	}
	s := f.byState[code]
	return s, len(s), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTable(t *testing.T) *regions.Table {
	t.Helper()
	tbl, err := regions.Parse([]byte(testRegions))
	require.NoError(t, err)
	return tbl
}

func TestDirectory_LoadTarget(t *testing.T) {
	f := &fakeFetcher{byState: map[string][]domain.Station{
		"48": {{ID: "08158000", Lat: 30.30, Lon: -97.70}},
		"40": {{ID: "07241000", Lat: 35.5, Lon: -97.5}},
	}}
	store := geocache.NewDir(t.TempDir())
	m := observability.NewMetricsForTesting()
	d := New(f, testTable(t), store, discardLogger(), m)

	require.Error(t, d.CheckReadiness(context.Background()))
	require.NoError(t, d.Load(context.Background(), "Texas"))
	require.NoError(t, d.CheckReadiness(context.Background()))

	assert.Equal(t, []string{"48"}, f.calls)
	assert.Len(t, d.Stations(), 1)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StationsLoaded), 0)

	data, err := store.Read(CacheFile)
	require.NoError(t, err)
	var saved []domain.Station
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, d.Stations(), saved)
}

func TestDirectory_LoadAllRegions(t *testing.T) {
	f := &fakeFetcher{byState: map[string][]domain.Station{
		"48": {{ID: "a", Lat: 30, Lon: -97}},
		"40": {{ID: "b", Lat: 35, Lon: -97}},
	}}
	d := New(f, testTable(t), geocache.NewDir(t.TempDir()), discardLogger(), nil)

	require.NoError(t, d.Load(context.Background(), ""))
	assert.Equal(t, []string{"48", "40"}, f.calls)
	ids := []string{}
	for _, s := range d.Stations() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestDirectory_ZeroStationsIsFatal(t *testing.T) {
	f := &fakeFetcher{byState: map[string][]domain.Station{"48": {{ID: "a"}}}}
	store := geocache.NewDir(t.TempDir())
	d := New(f, testTable(t), store, discardLogger(), nil)

	err := d.Load(context.Background(), "")
	require.ErrorIs(t, err, ErrNoStations)
	assert.Contains(t, err.Error(), "40")
	assert.Error(t, d.CheckReadiness(context.Background()))

	_, err = store.Read(CacheFile)
	assert.Error(t, err, "snapshot is not written on a fatal load")
}

func TestDirectory_FailedRegionSkipped(t *testing.T) {
	f := &fakeFetcher{
		byState: map[string][]domain.Station{"40": {{ID: "b", Lat: 35, Lon: -97}}},
		errs:    map[string]error{"48": errors.New("usgs_stations: status 503")},
	}
	d := New(f, testTable(t), geocache.NewDir(t.TempDir()), discardLogger(), nil)

	require.NoError(t, d.Load(context.Background(), ""))
	assert.Len(t, d.Stations(), 1)
}

func TestDirectory_CancelledLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{errs: map[string]error{"48": context.Canceled}}
	d := New(f, testTable(t), geocache.NewDir(t.TempDir()), discardLogger(), nil)

	err := d.Load(ctx, "TX")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNoStations)
}

func TestDirectory_Nearest(t *testing.T) {
	f := &fakeFetcher{byState: map[string][]domain.Station{
		"48": {
			{ID: "far", Lat: 31.5, Lon: -97.7},
			{ID: "near", Lat: 30.30, Lon: -97.70},
		},
	}}
	d := New(f, testTable(t), geocache.NewDir(t.TempDir()), discardLogger(), nil)
	require.NoError(t, d.Load(context.Background(), "TX"))

	id, ok := d.Nearest(30.27, -97.74)
	require.True(t, ok)
	assert.Equal(t, "near", id)

	_, ok = d.Nearest(40.0, -80.0)
	assert.False(t, ok)
}

func TestDirectory_NearestBeforeLoad(t *testing.T) {
	d := New(&fakeFetcher{}, testTable(t), geocache.NewDir(t.TempDir()), discardLogger(), nil)
	_, ok := d.Nearest(30, -97)
	assert.False(t, ok)
}
