package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ShortLink represents a shortened link and its owner-configured policy.
// This is the core domain entity the redirect path reads on every visit.
type ShortLink struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ShortCode   string `gorm:"uniqueIndex;not null;size:64" json:"short_code"`
	CustomAlias bool   `gorm:"default:false" json:"custom_alias"` // User-defined vs auto-generated
	OwnerID     string `gorm:"index;not null;size:64" json:"-"`
	TargetURL   string `gorm:"not null;type:text" json:"target_url"`
	Title       string `gorm:"size:255" json:"title,omitempty"`

	IsActive  bool       `gorm:"not null;index" json:"is_active"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"` // Nullable for non-expiring links

	Policy         RestrictionPolicy `gorm:"embedded;embeddedPrefix:policy_" json:"policy"`
	RedirectStatus int               `gorm:"default:302" json:"redirect_status"`

	ClickCount       int64      `gorm:"default:0" json:"click_count"`
	UniqueClickCount int64      `gorm:"default:0" json:"unique_click_count"`
	QRScanCount      int64      `gorm:"default:0" json:"qr_scan_count"`
	LastClickAt      *time.Time `json:"last_click_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ShortLink) TableName() string {
	return "short_links"
}

// IsExpired reports whether the link became inert before now.
func (l *ShortLink) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return now.After(*l.ExpiresAt)
}

// EffectiveRedirectStatus returns the configured status or 302.
func (l *ShortLink) EffectiveRedirectStatus() int {
	if IsValidRedirectStatus(l.RedirectStatus) {
		return l.RedirectStatus
	}
	return http.StatusFound
}

// IsValidRedirectStatus reports whether status is one of the supported redirect codes.
func IsValidRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect:
		return true
	}
	return false
}

// Device classes understood by the device restriction.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// RestrictionPolicy holds the optional gates on a link. A zero value allows
// every visit.
type RestrictionPolicy struct {
	PasswordHash     string    `gorm:"size:100" json:"-"`
	MaxClicks        *int64    `json:"max_clicks,omitempty"`
	AllowedCountries StringSet `gorm:"type:text" json:"allowed_countries,omitempty"`
	BlockedCountries StringSet `gorm:"type:text" json:"blocked_countries,omitempty"`
	AllowedDevices   StringSet `gorm:"type:text" json:"allowed_devices,omitempty"`
}

// HasPassword reports whether visitors must supply a password.
func (p RestrictionPolicy) HasPassword() bool {
	return p.PasswordHash != ""
}

// HasQuota reports whether the link has a click quota.
func (p RestrictionPolicy) HasQuota() bool {
	return p.MaxClicks != nil
}

// Validate checks the policy and normalizes country codes in place.
// It runs when a link is written so the redirect path never interprets
// malformed restrictions.
func (p *RestrictionPolicy) Validate() error {
	if p.MaxClicks != nil && *p.MaxClicks <= 0 {
		return fmt.Errorf("max_clicks must be positive, got %d", *p.MaxClicks)
	}

	var err error
	if p.AllowedCountries, err = normalizeCountries(p.AllowedCountries); err != nil {
		return fmt.Errorf("allowed_countries: %w", err)
	}
	if p.BlockedCountries, err = normalizeCountries(p.BlockedCountries); err != nil {
		return fmt.Errorf("blocked_countries: %w", err)
	}

	devices := make(StringSet, 0, len(p.AllowedDevices))
	for _, d := range p.AllowedDevices {
		d = strings.ToLower(strings.TrimSpace(d))
		switch d {
		case DeviceMobile, DeviceTablet, DeviceDesktop:
			devices = append(devices, d)
		default:
			return fmt.Errorf("allowed_devices: unknown device class %q", d)
		}
	}
	p.AllowedDevices = devices.Normalize()

	return nil
}

func normalizeCountries(codes StringSet) (StringSet, error) {
	out := make(StringSet, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !IsCountryCode(c) {
			return nil, fmt.Errorf("invalid country code %q", c)
		}
		out = append(out, c)
	}
	return out.Normalize(), nil
}

// IsCountryCode reports whether code looks like an ISO 3166-1 alpha-2 code.
func IsCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// IsUnknownCountry reports whether code is a placeholder CDNs send when they
// could not place a client ("XX" for unknown, "T1" for Tor exits).
func IsUnknownCountry(code string) bool {
	switch code {
	case "XX", "T1", "ZZ":
		return true
	}
	return false
}

// StringSet is a small set of strings persisted as a JSON array.
type StringSet []string

// Contains reports whether v is a member of the set.
func (s StringSet) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// Normalize returns a sorted copy without duplicates.
func (s StringSet) Normalize() StringSet {
	if len(s) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	out := make(StringSet, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Value implements driver.Valuer.
func (s StringSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringSet) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported StringSet source %T", value)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		*s = nil
		return nil
	}
	*s = items
	return nil
}
