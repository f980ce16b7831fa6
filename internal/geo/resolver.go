package geo

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/oschwald/geoip2-golang"

	"linkgate/internal/domain"
	"linkgate/internal/metrics"
	"linkgate/pkg/logger"
)

// Database is the subset of a MaxMind reader the resolver uses.
type Database interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// Cache is the per-IP location cache. *expirable.LRU satisfies it.
type Cache interface {
	Get(key string) (domain.Location, bool)
	Add(key string, value domain.Location) bool
}

// NewCache creates a bounded cache whose entries expire after ttl.
func NewCache(size int, ttl time.Duration) *expirable.LRU[string, domain.Location] {
	if size <= 0 {
		size = 10000
	}
	return expirable.NewLRU[string, domain.Location](size, nil, ttl)
}

// OpenDatabase opens a local GeoLite2/GeoIP2 City database file.
func OpenDatabase(path string) (Database, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo database %s: %w", path, err)
	}
	return reader, nil
}

// carrier-grade NAT space is not covered by net.IP.IsPrivate
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// Resolver maps client IPs to coarse locations. It never fails: anything it
// cannot resolve comes back as the configured default location.
type Resolver struct {
	db       Database
	cache    Cache
	fallback domain.Location
	logger   *logger.Logger
}

// NewResolver creates a resolver. db may be nil, in which case every lookup
// returns fallback.
func NewResolver(db Database, cache Cache, fallback domain.Location, log *logger.Logger) *Resolver {
	return &Resolver{
		db:       db,
		cache:    cache,
		fallback: fallback,
		logger:   log,
	}
}

// Locate resolves ip. Reserved ranges and failed lookups return the default.
func (r *Resolver) Locate(ctx context.Context, ip string) domain.Location {
	parsed := net.ParseIP(ip)
	if parsed == nil || isReserved(parsed) || r.db == nil {
		return r.fallback
	}

	key := parsed.String()
	if r.cache != nil {
		if loc, ok := r.cache.Get(key); ok {
			metrics.GeoLookupsTotal.WithLabelValues("cache_hit").Inc()
			return loc
		}
	}

	record, err := r.db.City(parsed)
	if err != nil {
		metrics.GeoLookupsTotal.WithLabelValues("error").Inc()
		r.logger.Debugw("Geo lookup failed, using default location", "ip", key, "error", err)
		return r.fallback
	}

	loc := toLocation(record)
	if loc.Country == "" {
		loc = r.fallback
	}

	metrics.GeoLookupsTotal.WithLabelValues("lookup").Inc()
	if r.cache != nil {
		r.cache.Add(key, loc)
	}
	return loc
}

// Close releases the underlying database.
func (r *Resolver) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func toLocation(record *geoip2.City) domain.Location {
	if record == nil {
		return domain.Location{}
	}
	loc := domain.Location{
		Country:  record.Country.IsoCode,
		City:     record.City.Names["en"],
		Timezone: record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
	}
	return loc
}

func isReserved(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip)
}
