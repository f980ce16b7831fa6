package service

import (
	"context"

	"linkgate/internal/domain"
)

// LinkResolver turns a short code and a visit into a redirect decision.
// Denials never touch stored state, so retrying a denied visit is safe.
type LinkResolver interface {
	// Resolve decides the visit. Deny outcomes come back as a Decision; the
	// error is reserved for storage failures.
	Resolve(ctx context.Context, shortCode string, req *domain.RequestContext) (domain.Decision, error)

	// Preview describes a link without recording anything
	Preview(ctx context.Context, shortCode string) (*domain.LinkPreview, error)

	// Lookup returns a link that can currently be visited
	Lookup(ctx context.Context, shortCode string) (*domain.ShortLink, error)
}

// GeoLocator resolves client IPs to locations
type GeoLocator interface {
	Locate(ctx context.Context, ip string) domain.Location
}

// DeviceClassifier parses user-agent strings
type DeviceClassifier interface {
	Classify(userAgent string) domain.DeviceInfo
}

// ClickRecorder accepts allowed visits for analytics
type ClickRecorder interface {
	Record(ctx context.Context, link *domain.ShortLink, visit domain.Visit) (string, error)
}
