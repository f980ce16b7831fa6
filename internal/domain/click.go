package domain

import (
	"time"
)

// ClickEvent is one accepted visit. Rows are append-only.
type ClickEvent struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	ShortLinkID      uint      `gorm:"index;not null" json:"short_link_id"`
	ShortCode        string    `gorm:"size:64;not null" json:"short_code"`
	ClickedAt        time.Time `gorm:"index;not null" json:"clicked_at"`
	Fingerprint      string    `gorm:"size:64;not null" json:"fingerprint"`
	IPHash           string    `gorm:"size:64" json:"-"` // Raw client IPs are never stored
	Country          string    `gorm:"size:2" json:"country,omitempty"`
	Region           string    `gorm:"size:64" json:"region,omitempty"`
	City             string    `gorm:"size:128" json:"city,omitempty"`
	Timezone         string    `gorm:"size:64" json:"timezone,omitempty"`
	DeviceType       string    `gorm:"size:16" json:"device_type,omitempty"`
	Browser          string    `gorm:"size:64" json:"browser,omitempty"`
	OS               string    `gorm:"size:64" json:"os,omitempty"`
	Referrer         string    `gorm:"type:text" json:"referrer,omitempty"`
	ScreenResolution string    `gorm:"size:32" json:"screen_resolution,omitempty"`
	ViaQR            bool      `gorm:"default:false" json:"via_qr"`
	Unique           bool      `gorm:"default:false" json:"unique"`
}

// TableName specifies the table name for GORM
func (ClickEvent) TableName() string {
	return "click_events"
}

// LinkVisitor marks the first time a fingerprint visited a link.
type LinkVisitor struct {
	ShortLinkID uint      `gorm:"primaryKey;autoIncrement:false"`
	Fingerprint string    `gorm:"primaryKey;size:64"`
	FirstSeenAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (LinkVisitor) TableName() string {
	return "link_visitors"
}

// ClickOptions tells the store which counters a recorded click touches.
type ClickOptions struct {
	// AlreadyCounted is set when click_count was bumped by a quota claim.
	AlreadyCounted bool
}

// ClickResult reports what RecordClick changed.
type ClickResult struct {
	Unique bool
}

// LinkStats is the counter view returned to link owners.
type LinkStats struct {
	ShortCode        string     `json:"short_code"`
	TargetURL        string     `json:"target_url"`
	ClickCount       int64      `json:"click_count"`
	UniqueClickCount int64      `json:"unique_click_count"`
	QRScanCount      int64      `json:"qr_scan_count"`
	MaxClicks        *int64     `json:"max_clicks,omitempty"`
	RemainingClicks  *int64     `json:"remaining_clicks,omitempty"`
	LastClickAt      *time.Time `json:"last_click_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	IsActive         bool       `json:"is_active"`
}

// NewLinkStats builds the owner view of a link's counters.
func NewLinkStats(link *ShortLink) *LinkStats {
	stats := &LinkStats{
		ShortCode:        link.ShortCode,
		TargetURL:        link.TargetURL,
		ClickCount:       link.ClickCount,
		UniqueClickCount: link.UniqueClickCount,
		QRScanCount:      link.QRScanCount,
		MaxClicks:        link.Policy.MaxClicks,
		LastClickAt:      link.LastClickAt,
		CreatedAt:        link.CreatedAt,
		ExpiresAt:        link.ExpiresAt,
		IsActive:         link.IsActive,
	}
	if link.Policy.MaxClicks != nil {
		remaining := *link.Policy.MaxClicks - link.ClickCount
		if remaining < 0 {
			remaining = 0
		}
		stats.RemainingClicks = &remaining
	}
	return stats
}
