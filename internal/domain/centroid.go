package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// ErrNoCentroid is returned when no coordinate can be derived for an alert.
var ErrNoCentroid = errors.New("no centroid for alert")

// locationPattern matches "<County> [ST]" pairs in IEM location text.
var locationPattern = regexp.MustCompile(`([A-Z][A-Za-z.'\- ]*?)\s*\[([A-Z]{2})\]`)

// LocationRef is one county/region pair parsed from location text.
type LocationRef struct {
	County string
	Region string
}

// ParseLocations extracts every "<County> [ST]" pair from s in order.
func ParseLocations(s string) []LocationRef {
	matches := locationPattern.FindAllStringSubmatch(s, -1)
	refs := make([]LocationRef, 0, len(matches))
	for _, m := range matches {
		county := strings.TrimSpace(m[1])
		if county == "" {
			continue
		}
		refs = append(refs, LocationRef{County: county, Region: m[2]})
	}
	return refs
}

// Gazetteer answers coordinate lookups for counties and regions.
type Gazetteer interface {
	CountyCoord(region, county string) (Coord, bool)
	RegionDefault(region string) (Coord, bool)
}

// GeometryCentroid returns the representative coordinate of a GeoJSON Point or
// Polygon. Polygons use the arithmetic mean of the outer ring.
func GeometryCentroid(g *Geometry) (Coord, error) {
	if g == nil || len(g.Coordinates) == 0 {
		return Coord{}, ErrNoCentroid
	}
	switch g.Type {
	case "Point":
		var p []float64
		if err := json.Unmarshal(g.Coordinates, &p); err != nil {
			return Coord{}, fmt.Errorf("decode point: %w", err)
		}
		if len(p) < 2 {
			return Coord{}, fmt.Errorf("point has %d ordinates: %w", len(p), ErrNoCentroid)
		}
		return Coord{Lat: p[1], Lon: p[0]}, nil
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return Coord{}, fmt.Errorf("decode polygon: %w", err)
		}
		if len(rings) == 0 || len(rings[0]) == 0 {
			return Coord{}, fmt.Errorf("empty polygon: %w", ErrNoCentroid)
		}
		var sumLat, sumLon float64
		n := 0
		for _, v := range rings[0] {
			if len(v) < 2 {
				continue
			}
			sumLon += v[0]
			sumLat += v[1]
			n++
		}
		if n == 0 {
			return Coord{}, fmt.Errorf("polygon has no vertices: %w", ErrNoCentroid)
		}
		return Coord{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}, nil
	default:
		return Coord{}, fmt.Errorf("geometry type %q: %w", g.Type, ErrNoCentroid)
	}
}

// CentroidSource names how a centroid was resolved.
type CentroidSource string

const (
	CentroidGeometry CentroidSource = "geometry"
	CentroidCounty   CentroidSource = "county"
	CentroidGeocoded CentroidSource = "geocoded"
	CentroidRegion   CentroidSource = "region"
)

// ResolveCentroid derives a coordinate for an alert. Lookup order:
//  1. explicit geometry
//  2. the first parsed county found in the gazetteer for its own region
//  3. the geocoder (may be nil) on the first parsed county
//  4. the region default of target when its tag appears in the text, or of
//     any parsed region when no target is set
//
// ErrNoCentroid is returned when every step misses.
func ResolveCentroid(ctx context.Context, a Alert, gaz Gazetteer, geo Geocoder, target string, logger *slog.Logger) (Coord, CentroidSource, error) {
	if a.Geometry != nil {
		c, err := GeometryCentroid(a.Geometry)
		if err == nil {
			return c, CentroidGeometry, nil
		}
		logger.Debug("geometry centroid failed, falling back to location text", "error", err)
	}

	refs := ParseLocations(a.AreaDesc)
	for _, ref := range refs {
		if c, ok := gaz.CountyCoord(ref.Region, ref.County); ok {
			return c, CentroidCounty, nil
		}
	}

	if geo != nil && len(refs) > 0 {
		ref := refs[0]
		res, err := geo.ForwardGeocode(ctx, ref.County, ref.Region)
		switch {
		case err != nil:
			logger.Warn("geocode failed", "county", ref.County, "region", ref.Region, "error", err)
		case res.Lat != 0 || res.Lon != 0:
			return Coord{Lat: res.Lat, Lon: res.Lon}, CentroidGeocoded, nil
		}
	}

	if target != "" {
		if strings.Contains(a.AreaDesc, "["+target+"]") {
			if c, ok := gaz.RegionDefault(target); ok {
				return c, CentroidRegion, nil
			}
		}
		return Coord{}, "", ErrNoCentroid
	}
	for _, ref := range refs {
		if c, ok := gaz.RegionDefault(ref.Region); ok {
			return c, CentroidRegion, nil
		}
	}
	return Coord{}, "", ErrNoCentroid
}
