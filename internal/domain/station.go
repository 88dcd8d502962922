package domain

// Station is a USGS stream monitoring location.
type Station struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coord returns the station position.
func (s Station) Coord() Coord {
	return Coord{Lat: s.Lat, Lon: s.Lon}
}

// NearestStation scans stations in order and returns the ID of the closest one
// strictly within maxKm of p. Ties keep the first station encountered.
func NearestStation(stations []Station, p Coord, maxKm float64) (string, bool) {
	nearest := ""
	minDist := maxKm
	for _, s := range stations {
		if d := DistanceKm(p, s.Coord()); d < minDist {
			minDist = d
			nearest = s.ID
		}
	}
	return nearest, nearest != ""
}
