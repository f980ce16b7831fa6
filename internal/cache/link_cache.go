package cache

import (
	"context"
	"encoding/json"
	"time"

	"linkgate/internal/domain"
	"linkgate/internal/metrics"
)

// tombstone marks a short code known not to exist
const tombstone = "!missing"

// linkSnapshot is the cached form of a link. It carries the fields the
// redirect path needs, including the ones hidden from API responses.
type linkSnapshot struct {
	ID               uint       `json:"id"`
	ShortCode        string     `json:"short_code"`
	OwnerID          string     `json:"owner_id"`
	TargetURL        string     `json:"target_url"`
	Title            string     `json:"title,omitempty"`
	IsActive         bool       `json:"is_active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RedirectStatus   int        `json:"redirect_status"`
	PasswordHash     string     `json:"password_hash,omitempty"`
	MaxClicks        *int64     `json:"max_clicks,omitempty"`
	AllowedCountries []string   `json:"allowed_countries,omitempty"`
	BlockedCountries []string   `json:"blocked_countries,omitempty"`
	AllowedDevices   []string   `json:"allowed_devices,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// LinkCache is a cache-aside layer for link definitions keyed by short code.
// Counters are not cached. Callers that need them read the repository.
// A nil backend turns every method into a no-op.
type LinkCache struct {
	backend     Cache
	ttl         time.Duration
	negativeTTL time.Duration
}

// NewLinkCache creates a link cache over backend
func NewLinkCache(backend Cache, ttl, negativeTTL time.Duration) *LinkCache {
	return &LinkCache{backend: backend, ttl: ttl, negativeTTL: negativeTTL}
}

// Get looks up a link. hit reports whether the cache had an answer; a hit
// with a nil link means the code is known to be missing.
func (c *LinkCache) Get(ctx context.Context, shortCode string) (link *domain.ShortLink, hit bool, err error) {
	if c == nil || c.backend == nil {
		return nil, false, nil
	}

	raw, err := c.backend.Get(ctx, linkKey(shortCode))
	if err != nil {
		metrics.LinkCacheTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}
	if raw == "" {
		metrics.LinkCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if raw == tombstone {
		metrics.LinkCacheTotal.WithLabelValues("negative_hit").Inc()
		return nil, true, nil
	}

	var snap linkSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// Corrupt entries are treated as a miss and overwritten on the next fill
		metrics.LinkCacheTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}

	metrics.LinkCacheTotal.WithLabelValues("hit").Inc()
	return snap.toLink(), true, nil
}

// Put stores a link definition. Links with a click quota are skipped since
// their decision depends on the live counter.
func (c *LinkCache) Put(ctx context.Context, link *domain.ShortLink) error {
	if c == nil || c.backend == nil || link.Policy.HasQuota() {
		return nil
	}

	payload, err := json.Marshal(snapshotOf(link))
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, linkKey(link.ShortCode), string(payload), c.ttl)
}

// PutMissing remembers that shortCode does not exist
func (c *LinkCache) PutMissing(ctx context.Context, shortCode string) error {
	if c == nil || c.backend == nil || c.negativeTTL <= 0 {
		return nil
	}
	return c.backend.Set(ctx, linkKey(shortCode), tombstone, c.negativeTTL)
}

// Invalidate drops any cached answer for shortCode
func (c *LinkCache) Invalidate(ctx context.Context, shortCode string) error {
	if c == nil || c.backend == nil {
		return nil
	}
	return c.backend.Delete(ctx, linkKey(shortCode))
}

func linkKey(shortCode string) string {
	return "link:" + shortCode
}

func snapshotOf(l *domain.ShortLink) linkSnapshot {
	return linkSnapshot{
		ID:               l.ID,
		ShortCode:        l.ShortCode,
		OwnerID:          l.OwnerID,
		TargetURL:        l.TargetURL,
		Title:            l.Title,
		IsActive:         l.IsActive,
		ExpiresAt:        l.ExpiresAt,
		RedirectStatus:   l.RedirectStatus,
		PasswordHash:     l.Policy.PasswordHash,
		MaxClicks:        l.Policy.MaxClicks,
		AllowedCountries: l.Policy.AllowedCountries,
		BlockedCountries: l.Policy.BlockedCountries,
		AllowedDevices:   l.Policy.AllowedDevices,
		CreatedAt:        l.CreatedAt,
	}
}

func (s linkSnapshot) toLink() *domain.ShortLink {
	return &domain.ShortLink{
		ID:             s.ID,
		ShortCode:      s.ShortCode,
		OwnerID:        s.OwnerID,
		TargetURL:      s.TargetURL,
		Title:          s.Title,
		IsActive:       s.IsActive,
		ExpiresAt:      s.ExpiresAt,
		RedirectStatus: s.RedirectStatus,
		Policy: domain.RestrictionPolicy{
			PasswordHash:     s.PasswordHash,
			MaxClicks:        s.MaxClicks,
			AllowedCountries: s.AllowedCountries,
			BlockedCountries: s.BlockedCountries,
			AllowedDevices:   s.AllowedDevices,
		},
		CreatedAt: s.CreatedAt,
	}
}
