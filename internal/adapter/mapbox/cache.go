package mapbox

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
	"github.com/couchcryptid/flood-data-etl/internal/geocache"
)

// CacheFile is the keyed cache file for forward geocoding results.
const CacheFile = "geocode.json"

type placeKey struct {
	name, state string
}

// CachedGeocoder wraps a Geocoder with a persistent file cache. A "no match"
// answer is cached as null so unknown counties are not looked up again.
// Errors are not cached.
type CachedGeocoder struct {
	inner  domain.Geocoder
	cache  *geocache.KeyedFile[placeKey, domain.GeocodingResult]
	logger *slog.Logger
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, store geocache.Storage, logger *slog.Logger, opts ...geocache.Option) *CachedGeocoder {
	key := func(k placeKey) string {
		return strings.ToLower(k.name) + "|" + strings.ToUpper(k.state)
	}
	return &CachedGeocoder{
		inner:  inner,
		cache:  geocache.NewKeyedFile[placeKey, domain.GeocodingResult](store, CacheFile, key, opts...),
		logger: logger,
	}
}

// ForwardGeocode implements domain.Geocoder.
func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, name, state string) (domain.GeocodingResult, error) {
	k := placeKey{name: name, state: state}
	if cached, ok := c.cache.Load(k); ok {
		if cached == nil {
			return domain.GeocodingResult{}, nil
		}
		return *cached, nil
	}

	result, err := c.inner.ForwardGeocode(ctx, name, state)
	if err != nil {
		return result, err
	}
	if result.Lat == 0 && result.Lon == 0 {
		c.logger.Debug("no geocoding match", "name", name, "state", state)
		c.cache.Store(k, nil)
		return result, nil
	}
	c.cache.Store(k, &result)
	return result, nil
}
