// Package domain models the flood dataset: hydrological monitoring stations,
// historical flood alerts and the labeled records assembled from them.
//
// # Data Sources
//
// Stations come from the USGS Water Data OGC API (monitoring-locations
// collection, stream sites only). Alerts come from the Iowa Environmental
// Mesonet VTEC event archive, queried per National Weather Service forecast
// office and year with the flood phenomenon ("FL"). Precipitation comes from
// NOAA Climate Data Online (GHCND daily PRCP), elevation from the USGS
// Elevation Point Query Service, and gage height from the USGS daily values
// collection (parameter code 00065).
//
// # Conventions
//
// Coordinates:
//
//	GeoJSON geometries are [longitude, latitude]. Every type in this package
//	stores latitude first. Polygon centroids are the arithmetic mean of the
//	outer ring vertices, which is adequate at county scale.
//
// Location text:
//
//	IEM alerts carry no geometry, only a location string such as
//	"Fayette [TX], Lee [TX]". Each "<County> [ST]" pair is parsed by
//	[ParseLocations] and resolved against a county table, then an optional
//	geocoder, then a region-wide default coordinate. See [ResolveCentroid].
//
// Dates:
//
//	Alert onset and record sample dates are calendar days in UTC. The issue
//	timestamp is truncated to its first ten characters (YYYY-MM-DD).
//
// # Labels
//
// A positive record (flood_occurred=1) is an alert's own coordinate and date.
// A negative record (flood_occurred=0) perturbs both: up to half a degree on
// each axis and 1 to 28 days forward. Negative rows carry [NoneLabel] in the
// descriptive columns.
//
// # Record Keys
//
// Record keys are deterministic SHA-256 hashes of label|lat|lon|date|event so
// that republishing a dataset to a stream produces the same message keys.
package domain
