package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPositive(t *testing.T) {
	a := Alert{
		Event:     "Flash Flood Warning",
		AreaDesc:  "Travis [TX]",
		Severity:  "Warning",
		Certainty: "Observed",
		Urgency:   "Past",
		Onset:     time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC),
	}
	r := NewPositive(a, Coord{Lat: 30.27, Lon: -97.74})

	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, 5, r.Month)
	assert.Equal(t, 30.27, r.Lat)
	assert.Equal(t, -97.74, r.Lon)
	assert.Equal(t, "Flash Flood Warning", r.Event)
	assert.Equal(t, "Travis [TX]", r.Area)
	assert.Equal(t, Flooded, r.FloodOccurred)
	assert.Nil(t, r.PrecipMM)
	assert.Nil(t, r.StationID)
}

func TestNewNegative(t *testing.T) {
	// Perturbation crosses a month boundary; the columns follow the sample date.
	s := Sample{Coord: Coord{Lat: 30.6, Lon: -98.1}, Date: time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC)}
	r := NewNegative(s)

	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, 6, r.Month)
	assert.Equal(t, NoFlood, r.FloodOccurred)
	for _, v := range []string{r.Event, r.Area, r.Severity, r.Certainty, r.Urgency} {
		assert.Equal(t, NoneLabel, v)
	}
}

func TestRecordKey(t *testing.T) {
	day := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)
	pos := Record{Lat: 30.27, Lon: -97.74, Event: "Flood Warning", FloodOccurred: Flooded, Date: day}
	neg := Record{Lat: 30.27, Lon: -97.74, Event: NoneLabel, FloodOccurred: NoFlood, Date: day}

	assert.Equal(t, pos.Key(), pos.Key(), "key must be deterministic")
	assert.True(t, strings.HasPrefix(pos.Key(), "flood-"))
	assert.True(t, strings.HasPrefix(neg.Key(), "none-"))
	assert.Len(t, pos.Key(), len("flood-")+16)

	moved := pos
	moved.Lat = 30.28
	assert.NotEqual(t, pos.Key(), moved.Key())
}

func TestSerializeRecord(t *testing.T) {
	precip := 12.5
	r := Record{
		Year:          2023,
		Month:         5,
		Lat:           30.27,
		Lon:           -97.74,
		Event:         "Flash Flood Warning",
		PrecipMM:      &precip,
		FloodOccurred: Flooded,
		Date:          time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC),
	}

	msg, err := SerializeRecord(r)
	require.NoError(t, err)

	assert.Equal(t, []byte(r.Key()), msg.Key)
	assert.Equal(t, "1", msg.Headers["flood_occurred"])
	assert.Equal(t, "2023-05-10", msg.Headers["sample_date"])

	var fields map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &fields))
	assert.Equal(t, 12.5, fields["precip_24h_mm"])
	assert.Nil(t, fields["elevation_m"], "absent values serialize as null")
	assert.Contains(t, fields, "usgs_station_id")
}
