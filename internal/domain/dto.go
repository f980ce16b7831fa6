package domain

import (
	"time"
)

// CreateLinkRequest represents the payload for creating a short link
type CreateLinkRequest struct {
	URL              string     `json:"url" binding:"required"`
	CustomAlias      string     `json:"custom_alias,omitempty"`
	Title            string     `json:"title,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Password         string     `json:"password,omitempty"`
	MaxClicks        *int64     `json:"max_clicks,omitempty"`
	AllowedCountries []string   `json:"allowed_countries,omitempty"`
	BlockedCountries []string   `json:"blocked_countries,omitempty"`
	AllowedDevices   []string   `json:"allowed_devices,omitempty"`
	RedirectStatus   int        `json:"redirect_status,omitempty"`
}

// CreateLinkResponse represents the response after creating a short link
type CreateLinkResponse struct {
	ShortCode string     `json:"short_code"`
	ShortURL  string     `json:"short_url"`
	QRURL     string     `json:"qr_url"`
	TargetURL string     `json:"target_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LinkPreview is the public, side-effect free description of a link.
type LinkPreview struct {
	ShortCode        string     `json:"short_code"`
	ShortURL         string     `json:"short_url"`
	TargetURL        string     `json:"target_url,omitempty"` // Hidden behind a password
	Title            string     `json:"title,omitempty"`
	IsActive         bool       `json:"is_active"`
	Expired          bool       `json:"expired"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RequiresPassword bool       `json:"requires_password"`
	RedirectStatus   int        `json:"redirect_status"`
	ClickCount       int64      `json:"click_count"`
	UniqueClickCount int64      `json:"unique_click_count"`
	QRScanCount      int64      `json:"qr_scan_count"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// DataResponse wraps a successful payload
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}
