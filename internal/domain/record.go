package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// NoneLabel fills the descriptive columns of negative samples.
const NoneLabel = "None"

// Flood labels.
const (
	NoFlood = 0
	Flooded = 1
)

// Record is one labeled output row. Nil pointers are absent values and are
// distinct from zero.
type Record struct {
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Event         string    `json:"event"`
	Area          string    `json:"area"`
	Severity      string    `json:"severity"`
	Certainty     string    `json:"certainty"`
	Urgency       string    `json:"urgency"`
	PrecipMM      *float64  `json:"precip_24h_mm"`
	ElevationM    *float64  `json:"elevation_m"`
	StationID     *string   `json:"usgs_station_id"`
	GageHeightFt  *float64  `json:"usgs_gage_height_ft"`
	FloodOccurred int       `json:"flood_occurred"`
	Date          time.Time `json:"sample_date"`
}

// Sample is the coordinate and day a record is enriched for.
type Sample struct {
	Coord Coord
	Date  time.Time
}

// NewPositive builds the flood_occurred=1 record skeleton for an alert at c.
func NewPositive(a Alert, c Coord) Record {
	return Record{
		Year:          a.Onset.Year(),
		Month:         int(a.Onset.Month()),
		Lat:           c.Lat,
		Lon:           c.Lon,
		Event:         a.Event,
		Area:          a.AreaDesc,
		Severity:      a.Severity,
		Certainty:     a.Certainty,
		Urgency:       a.Urgency,
		FloodOccurred: Flooded,
		Date:          a.Onset,
	}
}

// NewNegative builds the flood_occurred=0 record skeleton for a perturbed sample.
func NewNegative(s Sample) Record {
	return Record{
		Year:          s.Date.Year(),
		Month:         int(s.Date.Month()),
		Lat:           s.Coord.Lat,
		Lon:           s.Coord.Lon,
		Event:         NoneLabel,
		Area:          NoneLabel,
		Severity:      NoneLabel,
		Certainty:     NoneLabel,
		Urgency:       NoneLabel,
		FloodOccurred: NoFlood,
		Date:          s.Date,
	}
}

// Key returns a deterministic identifier for the record.
func (r Record) Key() string {
	input := fmt.Sprintf("%d|%.4f|%.4f|%s|%s", r.FloodOccurred, r.Lat, r.Lon, r.Date.Format(time.DateOnly), r.Event)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if r.FloodOccurred == Flooded {
		return "flood-" + short
	}
	return "none-" + short
}

// OutputMessage is the serialized form of a record destined for a stream sink.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeRecord marshals a record into a keyed message with label headers.
func SerializeRecord(r Record) (OutputMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize record: %w", err)
	}
	return OutputMessage{
		Key:   []byte(r.Key()),
		Value: data,
		Headers: map[string]string{
			"flood_occurred": strconv.Itoa(r.FloodOccurred),
			"sample_date":    r.Date.Format(time.DateOnly),
		},
	}, nil
}
