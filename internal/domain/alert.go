package domain

import (
	"encoding/json"
	"time"
)

// Geometry is a GeoJSON geometry. Only Point and Polygon are interpreted.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Alert is a historical flood alert in internal form.
type Alert struct {
	Event       string    `json:"event"`
	AreaDesc    string    `json:"areaDesc"`
	Severity    string    `json:"severity"`
	Certainty   string    `json:"certainty"`
	Urgency     string    `json:"urgency"`
	Onset       time.Time `json:"onset"`
	Issued      string    `json:"issued,omitempty"`
	AreaSqMiles float64   `json:"area_sq_miles,omitempty"`
	Geometry    *Geometry `json:"geometry,omitempty"`
}

// FloodEvent is one entry of the IEM VTEC event listing for a weather office.
type FloodEvent struct {
	EventID          json.Number `json:"eventid"`
	Issue            string      `json:"issue"`
	Locations        string      `json:"locations"`
	PhenomenonName   string      `json:"ph_name"`
	SignificanceName string      `json:"sig_name"`
	AreaSqMiles      float64     `json:"area"`
}

// IssueDate returns the calendar day of the issue timestamp. Only the first
// ten characters are considered, so "2023-05-10T14:00:00Z" and
// "2023-05-10 14:00" both parse.
func (e FloodEvent) IssueDate() (time.Time, error) {
	s := e.Issue
	if len(s) > 10 {
		s = s[:10]
	}
	return time.Parse(time.DateOnly, s)
}

// ToAlert converts the upstream event to an Alert dated on its issue day.
func (e FloodEvent) ToAlert(onset time.Time) Alert {
	phenomenon := e.PhenomenonName
	if phenomenon == "" {
		phenomenon = "Flood"
	}
	significance := e.SignificanceName
	if significance == "" {
		significance = "Warning"
	}
	return Alert{
		Event:       phenomenon + " " + significance,
		AreaDesc:    e.Locations,
		Severity:    significance,
		Certainty:   "Observed",
		Urgency:     "Past",
		Onset:       onset,
		Issued:      e.Issue,
		AreaSqMiles: e.AreaSqMiles,
	}
}
