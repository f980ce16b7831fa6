package service

import (
	"context"

	"linkgate/internal/domain"
)

// LinkService defines the owner-facing operations on links.
// Every call is scoped to the owner resolved from the API key.
type LinkService interface {
	// CreateLink validates the target and policy and stores a new link
	CreateLink(ctx context.Context, ownerID string, req *domain.CreateLinkRequest) (*domain.CreateLinkResponse, error)

	// GetStats returns counters for a link the owner created
	GetStats(ctx context.Context, ownerID, shortCode string) (*domain.LinkStats, error)
}
