package domain

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestrictionPolicy_Validate(t *testing.T) {
	zero := int64(0)
	five := int64(5)

	tests := []struct {
		name    string
		policy  RestrictionPolicy
		wantErr bool
		check   func(t *testing.T, p RestrictionPolicy)
	}{
		{
			name:   "empty policy",
			policy: RestrictionPolicy{},
		},
		{
			name: "countries are upper-cased, sorted and deduplicated",
			policy: RestrictionPolicy{
				AllowedCountries: StringSet{"sa", " AE", "SA"},
				BlockedCountries: StringSet{"us"},
			},
			check: func(t *testing.T, p RestrictionPolicy) {
				assert.Equal(t, StringSet{"AE", "SA"}, p.AllowedCountries)
				assert.Equal(t, StringSet{"US"}, p.BlockedCountries)
			},
		},
		{
			name:   "devices are lower-cased",
			policy: RestrictionPolicy{AllowedDevices: StringSet{"Mobile", "tablet"}},
			check: func(t *testing.T, p RestrictionPolicy) {
				assert.Equal(t, StringSet{DeviceMobile, DeviceTablet}, p.AllowedDevices)
			},
		},
		{name: "positive quota", policy: RestrictionPolicy{MaxClicks: &five}},
		{name: "zero quota", policy: RestrictionPolicy{MaxClicks: &zero}, wantErr: true},
		{name: "three letter country", policy: RestrictionPolicy{AllowedCountries: StringSet{"USA"}}, wantErr: true},
		{name: "numeric country", policy: RestrictionPolicy{BlockedCountries: StringSet{"12"}}, wantErr: true},
		{name: "unknown device", policy: RestrictionPolicy{AllowedDevices: StringSet{"watch"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.policy
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestStringSet_ValueScan(t *testing.T) {
	v, err := StringSet{"AE", "SA"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["AE","SA"]`, v)

	empty, err := StringSet(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	var s StringSet
	require.NoError(t, s.Scan(`["US"]`))
	assert.Equal(t, StringSet{"US"}, s)

	require.NoError(t, s.Scan([]byte("[]")))
	assert.Nil(t, s)

	require.NoError(t, s.Scan(nil))
	assert.Nil(t, s)

	assert.Error(t, s.Scan(42))
	assert.Error(t, s.Scan("not json"))
}

func TestShortLink_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&ShortLink{}).IsExpired(now))
	assert.True(t, (&ShortLink{ExpiresAt: &past}).IsExpired(now))
	assert.False(t, (&ShortLink{ExpiresAt: &future}).IsExpired(now))
	assert.False(t, (&ShortLink{ExpiresAt: &now}).IsExpired(now))
}

func TestShortLink_EffectiveRedirectStatus(t *testing.T) {
	assert.Equal(t, http.StatusFound, (&ShortLink{}).EffectiveRedirectStatus())
	assert.Equal(t, http.StatusMovedPermanently, (&ShortLink{RedirectStatus: 301}).EffectiveRedirectStatus())
	assert.Equal(t, http.StatusTemporaryRedirect, (&ShortLink{RedirectStatus: 307}).EffectiveRedirectStatus())
	assert.Equal(t, http.StatusFound, (&ShortLink{RedirectStatus: 308}).EffectiveRedirectStatus())
}

func TestNewLinkStats(t *testing.T) {
	max := int64(3)
	stats := NewLinkStats(&ShortLink{
		ShortCode:  "abc",
		ClickCount: 5,
		Policy:     RestrictionPolicy{MaxClicks: &max},
	})
	require.NotNil(t, stats.RemainingClicks)
	assert.Equal(t, int64(0), *stats.RemainingClicks)

	unlimited := NewLinkStats(&ShortLink{ShortCode: "abc", ClickCount: 5})
	assert.Nil(t, unlimited.RemainingClicks)
}

func TestDenyReason_Classes(t *testing.T) {
	for _, r := range []DenyReason{ReasonNotFound, ReasonExpired, ReasonDeactivated, ReasonUnsafeTarget} {
		assert.True(t, r.IsUnavailable(), r)
		assert.False(t, r.IsPasswordChallenge(), r)
	}
	for _, r := range []DenyReason{ReasonPasswordRequired, ReasonPasswordIncorrect} {
		assert.True(t, r.IsPasswordChallenge(), r)
		assert.False(t, r.IsUnavailable(), r)
	}
	for _, r := range []DenyReason{ReasonQuotaExceeded, ReasonGeoBlocked, ReasonDeviceBlocked} {
		assert.False(t, r.IsUnavailable(), r)
		assert.False(t, r.IsPasswordChallenge(), r)
	}
}

func TestRequestContext_Visit(t *testing.T) {
	rc := &RequestContext{
		ClientIP:  "203.0.113.10",
		UserAgent: "ua",
		Password:  "secret",
		ViaQR:     true,
		Location:  Location{Country: "US"},
		Device:    DeviceInfo{Type: DeviceDesktop},
	}

	v := rc.Visit()
	assert.Equal(t, "203.0.113.10", v.ClientIP)
	assert.True(t, v.ViaQR)
	assert.Equal(t, "US", v.Location.Country)
	assert.Equal(t, DeviceDesktop, v.Device.Type)
}

func TestIsUnknownCountry(t *testing.T) {
	for _, code := range []string{"XX", "T1", "ZZ"} {
		assert.True(t, IsUnknownCountry(code), code)
	}
	assert.False(t, IsUnknownCountry("SA"))
	assert.False(t, IsUnknownCountry(""))
}
