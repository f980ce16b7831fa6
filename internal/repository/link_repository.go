package repository

import (
	"context"

	"linkgate/internal/domain"
)

// LinkRepository defines the contract for short link data access.
// Every implementation must make ClaimClick a single atomic
// increment-and-check so concurrent visits cannot overshoot a quota.
type LinkRepository interface {
	// Create stores a new short link
	Create(ctx context.Context, link *domain.ShortLink) error

	// FindByShortCode retrieves a link by code regardless of its state,
	// so the caller can tell deactivated and expired links apart
	FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error)

	// FindByOwnerAndShortCode retrieves a link only if it belongs to ownerID
	FindByOwnerAndShortCode(ctx context.Context, ownerID, shortCode string) (*domain.ShortLink, error)

	// ExistsByShortCode checks if a short code exists without fetching data
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)

	// ClaimClick increments click_count only while it is below the link's
	// max_clicks. It reports whether the click was claimed.
	ClaimClick(ctx context.Context, linkID uint) (bool, error)
}

// ClickRepository defines the append-only analytics store.
type ClickRepository interface {
	// RecordClick applies one accepted visit in a single unit of work:
	// bumps click_count (unless already claimed), marks the visitor,
	// bumps unique_click_count on first sight, bumps qr_scan_count for QR
	// visits and appends the event.
	RecordClick(ctx context.Context, event *domain.ClickEvent, opts domain.ClickOptions) (domain.ClickResult, error)
}
