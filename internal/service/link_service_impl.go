package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"linkgate/internal/cache"
	"linkgate/internal/domain"
	"linkgate/internal/repository"
	"linkgate/internal/restriction"
	"linkgate/internal/shortener"
	"linkgate/pkg/logger"
	"linkgate/pkg/validator"
)

// linkService implements the LinkService interface
type linkService struct {
	repo      repository.LinkRepository
	cache     *cache.LinkCache
	baseURL   string
	logger    *logger.Logger
	generator *shortener.CodeGenerator
	now       func() time.Time
}

// NewLinkService creates a new link service with dependencies injected
func NewLinkService(
	repo repository.LinkRepository,
	linkCache *cache.LinkCache,
	baseURL string,
	shortCodeLength int,
	logger *logger.Logger,
) LinkService {
	return &linkService{
		repo:      repo,
		cache:     linkCache,
		baseURL:   baseURL,
		logger:    logger,
		generator: shortener.NewCodeGenerator(shortCodeLength),
		now:       time.Now,
	}
}

// CreateLink creates a new short link with its restriction policy
func (s *linkService) CreateLink(ctx context.Context, ownerID string, req *domain.CreateLinkRequest) (*domain.CreateLinkResponse, error) {
	// Step 1: Validate the target URL
	if err := validator.ValidateURL(req.URL); err != nil {
		s.logger.Warnw("Invalid URL provided", "owner_id", ownerID, "error", err)
		return nil, domain.NewValidationError(domain.ErrInvalidURL, err.Error())
	}
	targetURL := validator.NormalizeURL(req.URL)

	// Step 2: Validate lifecycle and policy
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, domain.NewValidationError(domain.ErrInvalidPolicy, "expires_at must be in the future")
	}

	status := req.RedirectStatus
	if status == 0 {
		status = http.StatusFound
	}
	if !domain.IsValidRedirectStatus(status) {
		return nil, domain.NewValidationError(domain.ErrInvalidPolicy, "redirect_status must be 301, 302 or 307")
	}

	policy := domain.RestrictionPolicy{
		MaxClicks:        req.MaxClicks,
		AllowedCountries: req.AllowedCountries,
		BlockedCountries: req.BlockedCountries,
		AllowedDevices:   req.AllowedDevices,
	}
	if err := policy.Validate(); err != nil {
		return nil, domain.NewValidationError(domain.ErrInvalidPolicy, err.Error())
	}

	if req.Password != "" {
		hash, err := restriction.HashPassword(req.Password)
		if err != nil {
			s.logger.Errorw("Failed to hash link password", "error", err)
			return nil, domain.NewInternalError(err)
		}
		policy.PasswordHash = hash
	}

	// Step 3: Pick the short code
	var shortCode string
	if req.CustomAlias != "" {
		if !validator.ValidateShortCode(req.CustomAlias) || validator.IsReservedCode(req.CustomAlias) {
			return nil, domain.NewValidationError(domain.ErrShortCodeInvalid, "Custom alias contains invalid characters or is reserved")
		}

		exists, err := s.repo.ExistsByShortCode(ctx, req.CustomAlias)
		if err != nil {
			s.logger.Errorw("Failed to check short code existence", "error", err)
			return nil, domain.NewInternalError(err)
		}
		if exists {
			return nil, domain.ErrShortCodeTaken
		}
		shortCode = req.CustomAlias
	} else {
		code, err := s.generateUniqueShortCode(ctx)
		if err != nil {
			s.logger.Errorw("Failed to generate short code", "error", err)
			return nil, domain.NewInternalError(err)
		}
		shortCode = code
	}

	link := &domain.ShortLink{
		ShortCode:      shortCode,
		CustomAlias:    req.CustomAlias != "",
		OwnerID:        ownerID,
		TargetURL:      targetURL,
		Title:          req.Title,
		IsActive:       true,
		ExpiresAt:      req.ExpiresAt,
		Policy:         policy,
		RedirectStatus: status,
	}

	// Step 4: Save
	if err := s.repo.Create(ctx, link); err != nil {
		s.logger.Errorw("Failed to create link", "error", err, "short_code", shortCode)
		return nil, err
	}

	// A tombstone from an earlier miss would hide the new link
	if err := s.cache.Invalidate(ctx, shortCode); err != nil {
		s.logger.Warnw("Failed to invalidate link cache", "error", err, "short_code", shortCode)
	}

	s.logger.Infow("Link created",
		"short_code", shortCode,
		"owner_id", ownerID,
		"custom", link.CustomAlias,
		"restricted", policy.HasPassword() || policy.HasQuota() || len(policy.AllowedCountries) > 0 ||
			len(policy.BlockedCountries) > 0 || len(policy.AllowedDevices) > 0,
	)

	return &domain.CreateLinkResponse{
		ShortCode: link.ShortCode,
		ShortURL:  fmt.Sprintf("%s/%s", s.baseURL, link.ShortCode),
		QRURL:     fmt.Sprintf("%s/qr/%s", s.baseURL, link.ShortCode),
		TargetURL: link.TargetURL,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// GetStats returns counters for one of the owner's links
func (s *linkService) GetStats(ctx context.Context, ownerID, shortCode string) (*domain.LinkStats, error) {
	link, err := s.repo.FindByOwnerAndShortCode(ctx, ownerID, shortCode)
	if err != nil {
		return nil, err
	}
	return domain.NewLinkStats(link), nil
}

// generateUniqueShortCode generates a short code and ensures it's unique
// Implements collision handling with retry logic
func (s *linkService) generateUniqueShortCode(ctx context.Context) (string, error) {
	const maxRetries = 5

	for i := 0; i < maxRetries; i++ {
		shortCode, err := s.generator.Generate()
		if err != nil {
			return "", err
		}
		if validator.IsReservedCode(shortCode) {
			continue
		}

		exists, err := s.repo.ExistsByShortCode(ctx, shortCode)
		if err != nil {
			return "", err
		}
		if !exists {
			return shortCode, nil
		}

		s.logger.Warnw("Short code collision detected, retrying",
			"short_code", shortCode,
			"attempt", i+1,
		)
	}

	return "", fmt.Errorf("failed to generate unique short code after %d attempts", maxRetries)
}
