package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkgate/internal/analytics"
	"linkgate/internal/cache"
	"linkgate/internal/device"
	"linkgate/internal/domain"
	"linkgate/internal/repository/memory"
	"linkgate/internal/restriction"
	"linkgate/pkg/logger"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// stubGeo maps IPs to countries; anything else is unknown
type stubGeo map[string]string

func (g stubGeo) Locate(ctx context.Context, ip string) domain.Location {
	return domain.Location{Country: g[ip]}
}

type resolverEnv struct {
	store    *memory.Store
	resolver LinkResolver
	ctx      context.Context
}

func newResolverEnv(t *testing.T, linkCache *cache.LinkCache) *resolverEnv {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewNop()

	recorder := analytics.NewRecorder(store, store, analytics.NewFingerprinter("test-salt", 0), nil,
		analytics.Options{Workers: 0, JobTimeout: time.Second}, log)

	geo := stubGeo{"203.0.113.10": "US", "198.51.100.20": "SA"}

	return &resolverEnv{
		store:    store,
		resolver: NewLinkResolver(store, linkCache, geo, device.NewClassifier(), restriction.NewEvaluator(), recorder, "https://sho.rt", log),
		ctx:      context.Background(),
	}
}

func (e *resolverEnv) create(t *testing.T, link *domain.ShortLink) *domain.ShortLink {
	t.Helper()
	if link.TargetURL == "" {
		link.TargetURL = "https://example.com"
	}
	link.OwnerID = "owner-1"
	require.NoError(t, e.store.Create(e.ctx, link))
	return link
}

func (e *resolverEnv) counters(t *testing.T, code string) (clicks, unique, qr int64) {
	t.Helper()
	link, err := e.store.FindByShortCode(e.ctx, code)
	require.NoError(t, err)
	return link.ClickCount, link.UniqueClickCount, link.QRScanCount
}

func visitor(ip string) *domain.RequestContext {
	return &domain.RequestContext{ClientIP: ip, UserAgent: desktopUA}
}

// Scenario A and B: unrestricted link, first and repeat visits
func TestResolve_UnrestrictedLink(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{ShortCode: "abc123", IsActive: true})

	decision, err := env.resolver.Resolve(env.ctx, "abc123", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "https://example.com", decision.TargetURL)
	assert.Equal(t, http.StatusFound, decision.RedirectStatus)
	assert.NotEmpty(t, decision.Fingerprint)

	clicks, unique, _ := env.counters(t, "abc123")
	assert.Equal(t, int64(1), clicks)
	assert.Equal(t, int64(1), unique)

	again, err := env.resolver.Resolve(env.ctx, "abc123", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.True(t, again.Allowed)
	assert.Equal(t, decision.Fingerprint, again.Fingerprint)

	clicks, unique, _ = env.counters(t, "abc123")
	assert.Equal(t, int64(2), clicks)
	assert.Equal(t, int64(1), unique)
}

// Scenario C
func TestResolve_QuotaExhausted(t *testing.T) {
	env := newResolverEnv(t, nil)
	max := int64(1)
	env.create(t, &domain.ShortLink{
		ShortCode: "quota", IsActive: true, ClickCount: 1,
		Policy: domain.RestrictionPolicy{MaxClicks: &max},
	})

	decision, err := env.resolver.Resolve(env.ctx, "quota", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.ReasonQuotaExceeded, decision.Reason)

	clicks, _, _ := env.counters(t, "quota")
	assert.Equal(t, int64(1), clicks)
}

// Scenario D
func TestResolve_GeoBlocked(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{
		ShortCode: "geo", IsActive: true,
		Policy: domain.RestrictionPolicy{AllowedCountries: domain.StringSet{"SA"}},
	})

	decision, err := env.resolver.Resolve(env.ctx, "geo", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonGeoBlocked, decision.Reason)

	decision, err = env.resolver.Resolve(env.ctx, "geo", visitor("198.51.100.20"))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

// Scenario E
func TestResolve_Password(t *testing.T) {
	env := newResolverEnv(t, nil)
	hash, err := restriction.HashPassword("secret")
	require.NoError(t, err)
	env.create(t, &domain.ShortLink{
		ShortCode: "locked", IsActive: true,
		Policy: domain.RestrictionPolicy{PasswordHash: hash},
	})

	decision, err := env.resolver.Resolve(env.ctx, "locked", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonPasswordRequired, decision.Reason)

	wrong := visitor("203.0.113.10")
	wrong.Password = "wrong"
	decision, err = env.resolver.Resolve(env.ctx, "locked", wrong)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonPasswordIncorrect, decision.Reason)

	clicks, _, _ := env.counters(t, "locked")
	assert.Equal(t, int64(0), clicks, "denied visits never count")

	right := visitor("203.0.113.10")
	right.Password = "secret"
	decision, err = env.resolver.Resolve(env.ctx, "locked", right)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	clicks, unique, _ := env.counters(t, "locked")
	assert.Equal(t, int64(1), clicks)
	assert.Equal(t, int64(1), unique)
}

// Scenario F
func TestResolve_ExpiredWinsOverPolicy(t *testing.T) {
	env := newResolverEnv(t, nil)
	past := time.Now().Add(-time.Hour)
	hash, _ := restriction.HashPassword("secret")
	env.create(t, &domain.ShortLink{
		ShortCode: "old", IsActive: true, ExpiresAt: &past,
		Policy: domain.RestrictionPolicy{PasswordHash: hash, AllowedCountries: domain.StringSet{"SA"}},
	})

	decision, err := env.resolver.Resolve(env.ctx, "old", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonExpired, decision.Reason)
}

func TestResolve_DenialsAreIdempotent(t *testing.T) {
	env := newResolverEnv(t, nil)
	past := time.Now().Add(-time.Hour)
	env.create(t, &domain.ShortLink{ShortCode: "old", IsActive: true, ExpiresAt: &past})
	env.create(t, &domain.ShortLink{ShortCode: "off", IsActive: true})
	require.NoError(t, env.store.SetActive("off", false))

	cases := map[string]domain.DenyReason{
		"old":     domain.ReasonExpired,
		"off":     domain.ReasonDeactivated,
		"missing": domain.ReasonNotFound,
	}

	for code, want := range cases {
		for i := 0; i < 3; i++ {
			decision, err := env.resolver.Resolve(env.ctx, code, visitor("203.0.113.10"))
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, want, decision.Reason, code)
		}
	}

	for _, code := range []string{"old", "off"} {
		clicks, unique, qr := env.counters(t, code)
		assert.Zero(t, clicks+unique+qr, code)
	}
}

func TestResolve_UnsafeTarget(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{ShortCode: "js", IsActive: true, TargetURL: "javascript:alert(1)"})

	decision, err := env.resolver.Resolve(env.ctx, "js", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonUnsafeTarget, decision.Reason)
}

func TestResolve_DeviceBlocked(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{
		ShortCode: "mobile", IsActive: true,
		Policy: domain.RestrictionPolicy{AllowedDevices: domain.StringSet{domain.DeviceMobile}},
	})

	decision, err := env.resolver.Resolve(env.ctx, "mobile", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonDeviceBlocked, decision.Reason)

	phone := visitor("203.0.113.10")
	phone.UserAgent = iphoneUA
	decision, err = env.resolver.Resolve(env.ctx, "mobile", phone)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestResolve_UnknownCountryFailsOpen(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{ShortCode: "open", IsActive: true})
	env.create(t, &domain.ShortLink{
		ShortCode: "blocklist", IsActive: true,
		Policy: domain.RestrictionPolicy{BlockedCountries: domain.StringSet{"US"}},
	})

	for _, code := range []string{"open", "blocklist"} {
		decision, err := env.resolver.Resolve(env.ctx, code, visitor("10.0.0.1"))
		require.NoError(t, err)
		assert.True(t, decision.Allowed, code)
	}
}

func TestResolve_CountryHintFillsUnknown(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{
		ShortCode: "hint", IsActive: true,
		Policy: domain.RestrictionPolicy{BlockedCountries: domain.StringSet{"FR"}},
	})

	req := visitor("10.0.0.1")
	req.CountryHint = "fr"
	decision, err := env.resolver.Resolve(env.ctx, "hint", req)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonGeoBlocked, decision.Reason)

	// The hint never overrides a resolved country
	req = visitor("198.51.100.20")
	req.CountryHint = "FR"
	decision, err = env.resolver.Resolve(env.ctx, "hint", req)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestResolve_PlaceholderCountryHintIsUnknown(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{
		ShortCode: "allowsa", IsActive: true,
		Policy: domain.RestrictionPolicy{AllowedCountries: domain.StringSet{"SA"}},
	})

	for _, hint := range []string{"XX", "xx", "T1"} {
		req := visitor("10.0.0.1")
		req.CountryHint = hint
		decision, err := env.resolver.Resolve(env.ctx, "allowsa", req)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, hint)
	}

	events := env.store.Events(1)
	require.Len(t, events, 3)
	assert.Empty(t, events[0].Country)
}

func TestResolve_QRVisitAttribution(t *testing.T) {
	env := newResolverEnv(t, nil)
	link := env.create(t, &domain.ShortLink{ShortCode: "qr", IsActive: true})

	req := visitor("203.0.113.10")
	req.ViaQR = true
	decision, err := env.resolver.Resolve(env.ctx, "qr", req)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	_, _, qr := env.counters(t, "qr")
	assert.Equal(t, int64(1), qr)

	events := env.store.Events(link.ID)
	require.Len(t, events, 1)
	assert.True(t, events[0].ViaQR)
	assert.Equal(t, "US", events[0].Country)
	assert.Equal(t, domain.DeviceDesktop, events[0].DeviceType)
}

func TestResolve_ConcurrentQuota(t *testing.T) {
	env := newResolverEnv(t, nil)
	max := int64(5)
	env.create(t, &domain.ShortLink{
		ShortCode: "burst", IsActive: true,
		Policy: domain.RestrictionPolicy{MaxClicks: &max},
	})

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := env.resolver.Resolve(env.ctx, "burst", visitor("203.0.113.10"))
			if err == nil && decision.Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), allowed)
	clicks, unique, _ := env.counters(t, "burst")
	assert.Equal(t, int64(5), clicks)
	assert.LessOrEqual(t, unique, clicks)
}

func TestResolve_RedirectStatus(t *testing.T) {
	env := newResolverEnv(t, nil)
	env.create(t, &domain.ShortLink{ShortCode: "perm", IsActive: true, RedirectStatus: http.StatusMovedPermanently})

	decision, err := env.resolver.Resolve(env.ctx, "perm", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMovedPermanently, decision.RedirectStatus)
}

// failingStore fails every lookup
type failingStore struct {
	*memory.Store
}

func (f failingStore) FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	return nil, domain.NewInternalError(errors.New("connection refused"))
}

func TestResolve_StorageFailureIsAnError(t *testing.T) {
	store := failingStore{memory.NewStore()}
	log := logger.NewNop()
	recorder := analytics.NewRecorder(store, store, analytics.NewFingerprinter("s", 0), nil, analytics.Options{}, log)
	resolver := NewLinkResolver(store, nil, stubGeo{}, device.NewClassifier(), restriction.NewEvaluator(), recorder, "https://sho.rt", log)

	_, err := resolver.Resolve(context.Background(), "abc123", visitor("203.0.113.10"))
	assert.Error(t, err)
}

func TestResolve_CacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	backend, err := cache.NewRedisCache(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer backend.Close()

	env := newResolverEnv(t, cache.NewLinkCache(backend, time.Hour, time.Minute))

	// A miss leaves a tombstone
	decision, err := env.resolver.Resolve(env.ctx, "late", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonNotFound, decision.Reason)
	assert.True(t, mr.Exists("linkgate:link:late"))

	env.create(t, &domain.ShortLink{ShortCode: "abc123", IsActive: true})
	_, err = env.resolver.Resolve(env.ctx, "abc123", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.True(t, mr.Exists("linkgate:link:abc123"))

	// With Redis gone the resolver falls back to the store
	mr.Close()
	decision, err = env.resolver.Resolve(env.ctx, "abc123", visitor("203.0.113.10"))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	clicks, _, _ := env.counters(t, "abc123")
	assert.Equal(t, int64(2), clicks)
}

func TestPreview(t *testing.T) {
	env := newResolverEnv(t, nil)
	hash, _ := restriction.HashPassword("secret")
	env.create(t, &domain.ShortLink{ShortCode: "open", IsActive: true, Title: "Docs"})
	env.create(t, &domain.ShortLink{ShortCode: "locked", IsActive: true, Policy: domain.RestrictionPolicy{PasswordHash: hash}})

	preview, err := env.resolver.Preview(env.ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", preview.TargetURL)
	assert.Equal(t, "https://sho.rt/open", preview.ShortURL)
	assert.Equal(t, "Docs", preview.Title)
	assert.False(t, preview.RequiresPassword)

	preview, err = env.resolver.Preview(env.ctx, "locked")
	require.NoError(t, err)
	assert.Empty(t, preview.TargetURL)
	assert.True(t, preview.RequiresPassword)

	clicks, _, _ := env.counters(t, "open")
	assert.Zero(t, clicks, "preview never records")

	_, err = env.resolver.Preview(env.ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestLookup(t *testing.T) {
	env := newResolverEnv(t, nil)
	past := time.Now().Add(-time.Minute)
	env.create(t, &domain.ShortLink{ShortCode: "live", IsActive: true})
	env.create(t, &domain.ShortLink{ShortCode: "old", IsActive: true, ExpiresAt: &past})

	link, err := env.resolver.Lookup(env.ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "live", link.ShortCode)

	_, err = env.resolver.Lookup(env.ctx, "old")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	_, err = env.resolver.Lookup(env.ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}
