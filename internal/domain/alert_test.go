package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloodEventDecode(t *testing.T) {
	data := []byte(`{"eventid": 17, "issue": "2023-05-10T14:32:00Z", "locations": "Travis [TX]", "ph_name": "Flash Flood", "sig_name": "Warning", "area": 412.5}`)

	var e FloodEvent
	require.NoError(t, json.Unmarshal(data, &e))

	assert.Equal(t, "17", e.EventID.String())
	assert.Equal(t, "Travis [TX]", e.Locations)
	assert.Equal(t, 412.5, e.AreaSqMiles)
}

func TestFloodEventIssueDate(t *testing.T) {
	tests := []struct {
		name    string
		issue   string
		want    time.Time
		wantErr bool
	}{
		{"RFC3339", "2023-05-10T14:32:00Z", time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), false},
		{"space separated", "2023-05-10 14:32", time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), false},
		{"date only", "2023-12-31", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FloodEvent{Issue: tt.issue}.IssueDate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFloodEventToAlert(t *testing.T) {
	onset := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)

	t.Run("labels from event", func(t *testing.T) {
		e := FloodEvent{Issue: "2023-05-10T14:32:00Z", Locations: "Travis [TX]", PhenomenonName: "Flash Flood", SignificanceName: "Warning", AreaSqMiles: 10}
		a := e.ToAlert(onset)

		assert.Equal(t, "Flash Flood Warning", a.Event)
		assert.Equal(t, "Travis [TX]", a.AreaDesc)
		assert.Equal(t, "Warning", a.Severity)
		assert.Equal(t, "Observed", a.Certainty)
		assert.Equal(t, "Past", a.Urgency)
		assert.Equal(t, onset, a.Onset)
		assert.Equal(t, "2023-05-10T14:32:00Z", a.Issued)
		assert.Nil(t, a.Geometry)
	})

	t.Run("defaults", func(t *testing.T) {
		a := FloodEvent{Locations: "Harris [TX]"}.ToAlert(onset)
		assert.Equal(t, "Flood Warning", a.Event)
		assert.Equal(t, "Warning", a.Severity)
	})
}
