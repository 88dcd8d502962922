package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	station := "08158000"
	rec := domain.Record{
		Year:          2023,
		Month:         5,
		Lat:           30.27,
		Lon:           -97.74,
		Event:         "Flash Flood Warning",
		StationID:     &station,
		FloodOccurred: domain.Flooded,
		Date:          time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC),
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte(rec.Key()), msg.Key)
	assert.Contains(t, string(msg.Value), `"usgs_station_id":"08158000"`)
	assert.Contains(t, string(msg.Value), `"flood_occurred":1`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "flood_occurred", msg.Headers[0].Key)
	assert.Equal(t, []byte("1"), msg.Headers[0].Value)
	assert.Equal(t, "sample_date", msg.Headers[1].Key)
	assert.Equal(t, []byte("2023-05-10"), msg.Headers[1].Value)
}

func TestSerializeToMessage_NegativeKey(t *testing.T) {
	rec := domain.NewNegative(domain.Sample{
		Coord: domain.Coord{Lat: 30.1, Lon: -97.9},
		Date:  time.Date(2023, 5, 20, 0, 0, 0, 0, time.UTC),
	})

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)
	assert.True(t, len(msg.Key) > len("none-"))
	assert.Equal(t, "none-", string(msg.Key[:5]))
	assert.Equal(t, []byte("0"), msg.Headers[0].Value)
}
