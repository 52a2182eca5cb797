package util

import (
	"math"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
)

var (
	geoipDB        *geoip2.Reader
	geoipCache     *cache.Cache
	geoipCacheHits int64
	geoipCacheMiss int64
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between
// two coordinate pairs.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}

// InitGeoIP initializes the local GeoIP2 database reader and an in-memory cache.
// Provide the path to a GeoIP2/GeoLite2 .mmdb file via `dbPath`.
// If dbPath is empty or the file cannot be opened, initialization is a no-op.
func InitGeoIP(dbPath string) error {
	if dbPath == "" {
		dbPath = os.Getenv("GEOIP_DB_PATH")
	}
	if dbPath == "" {
		return nil
	}

	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoipDB = r
	// Cache entries for 24h, purge every hour
	geoipCache = cache.New(24*time.Hour, 1*time.Hour)
	return nil
}

// CloseGeoIP closes the GeoIP DB if opened.
func CloseGeoIP() {
	if geoipDB != nil {
		_ = geoipDB.Close()
		geoipDB = nil
	}
}

func privateIP(ip string) bool {
	return ip == "" || ip == "127.0.0.1" || ip == "::1" ||
		(len(ip) >= 4 && ip[:4] == "10.") ||
		(len(ip) >= 8 && ip[:8] == "192.168") ||
		(len(ip) >= 2 && ip[:2] == "::")
}

type geoEntry struct {
	City    string
	Country string
	Lat     float64
	Lon     float64
	HasGeo  bool
}

func lookupIP(ip string) (geoEntry, bool) {
	if privateIP(ip) {
		return geoEntry{}, false
	}

	if geoipCache != nil {
		if v, ok := geoipCache.Get(ip); ok {
			atomic.AddInt64(&geoipCacheHits, 1)
			if e, ok := v.(geoEntry); ok {
				return e, true
			}
		}
	}
	atomic.AddInt64(&geoipCacheMiss, 1)

	if geoipDB == nil {
		return geoEntry{}, false
	}

	netip := net.ParseIP(ip)
	if netip == nil {
		return geoEntry{}, false
	}

	rec, err := geoipDB.City(netip)
	if err != nil {
		return geoEntry{}, false
	}

	entry := geoEntry{
		Lat:    rec.Location.Latitude,
		Lon:    rec.Location.Longitude,
		HasGeo: rec.Location.Latitude != 0 || rec.Location.Longitude != 0,
	}
	if rec.City.Names != nil {
		entry.City = rec.City.Names["en"]
	}
	if rec.Country.Names != nil {
		entry.Country = rec.Country.Names["en"]
	}
	if entry.Country == "" {
		entry.Country = rec.Country.IsoCode
	}

	if geoipCache != nil {
		geoipCache.Set(ip, entry, cache.DefaultExpiration)
	}
	return entry, true
}

// GetIPLocation returns city and country name for the provided IP using the
// local GeoIP database with an in-memory cache. Returns empty strings when
// a lookup is not available.
func GetIPLocation(ip string) (string, string) {
	e, ok := lookupIP(ip)
	if !ok {
		return "", ""
	}
	return e.City, e.Country
}

// LookupClientCoordinates resolves approximate coordinates for a client
// IP. ok is false when no usable location is available; callers fall
// back to non-geographic filtering.
func LookupClientCoordinates(ip string) (lat, lon float64, ok bool) {
	e, found := lookupIP(ip)
	if !found || !e.HasGeo {
		return 0, 0, false
	}
	return e.Lat, e.Lon, true
}

// SeedGeoIPCacheForTest primes the lookup cache with a resolved
// location so geo code paths can run without an mmdb file.
func SeedGeoIPCacheForTest(ip string, lat, lon float64) {
	if geoipCache == nil {
		geoipCache = cache.New(24*time.Hour, 1*time.Hour)
	}
	geoipCache.Set(ip, geoEntry{Lat: lat, Lon: lon, HasGeo: true}, cache.DefaultExpiration)
}

// FlushGeoIPCacheForTest drops every cached lookup.
func FlushGeoIPCacheForTest() {
	if geoipCache != nil {
		geoipCache.Flush()
	}
}

// GetGeoIPCacheMetrics returns the cache hits and misses and current cache size.
func GetGeoIPCacheMetrics() (hits int64, misses int64, size int) {
	hits = atomic.LoadInt64(&geoipCacheHits)
	misses = atomic.LoadInt64(&geoipCacheMiss)
	if geoipCache != nil {
		return hits, misses, geoipCache.ItemCount()
	}
	return hits, misses, 0
}
