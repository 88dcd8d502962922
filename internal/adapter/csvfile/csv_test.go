package csvfile

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func sampleRecords() []domain.Record {
	return []domain.Record{
		{
			Year: 2023, Month: 5, Lat: 30.27, Lon: -97.74,
			Event: "Flash Flood Warning", Area: "Travis [TX], Hays [TX]",
			Severity: "Warning", Certainty: "Observed", Urgency: "Past",
			PrecipMM: ptr(12.5), ElevationM: ptr(150.0), StationID: ptr("08158000"), GageHeightFt: ptr(3.2),
			FloodOccurred: domain.Flooded,
		},
		domain.NewNegative(domain.Sample{
			Coord: domain.Coord{Lat: 30.0125, Lon: -97.5},
			Date:  time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC),
		}),
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleRecords()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "year,month,lat,lon,event,area,severity,certainty,urgency,precip_24h_mm,elevation_m,usgs_station_id,usgs_gage_height_ft,flood_occurred", lines[0])
	assert.Equal(t, `2023,5,30.27,-97.74,Flash Flood Warning,"Travis [TX], Hays [TX]",Warning,Observed,Past,12.5,150,08158000,3.2,1`, lines[1])
	assert.Equal(t, "2023,6,30.0125,-97.5,None,None,None,None,None,,,,,0", lines[2])
}

func TestDecode_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := sampleRecords()
	require.NoError(t, Encode(&buf, in))

	out, err := Decode(&buf)
	require.NoError(t, err)

	for i := range in {
		in[i].Date = time.Time{}
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_BadHeader(t *testing.T) {
	_, err := Decode(strings.NewReader("a,b,c\n"))
	require.Error(t, err)
}

func TestDecode_BadRow(t *testing.T) {
	data := strings.Join(Header, ",") + "\n" + "x,5,30,-97,e,a,s,c,u,,,,,1\n"
	_, err := Decode(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestWriter_LoadBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "flood_dataset.csv")
	w := NewWriter(path, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, w.LoadBatch(context.Background(), sampleRecords()))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, w.LoadBatch(context.Background(), nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header, ",")+"\n", string(data), "an empty dataset still has a header")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
