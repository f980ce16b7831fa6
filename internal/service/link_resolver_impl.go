package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"linkgate/internal/cache"
	"linkgate/internal/domain"
	"linkgate/internal/repository"
	"linkgate/internal/restriction"
	"linkgate/pkg/logger"
	"linkgate/pkg/validator"
)

// linkResolver implements the LinkResolver interface
type linkResolver struct {
	links     repository.LinkRepository
	cache     *cache.LinkCache
	geo       GeoLocator
	devices   DeviceClassifier
	evaluator *restriction.Evaluator
	recorder  ClickRecorder
	baseURL   string
	logger    *logger.Logger
	now       func() time.Time
}

// NewLinkResolver creates a resolver with dependencies injected.
// linkCache may be nil.
func NewLinkResolver(
	links repository.LinkRepository,
	linkCache *cache.LinkCache,
	geo GeoLocator,
	devices DeviceClassifier,
	evaluator *restriction.Evaluator,
	recorder ClickRecorder,
	baseURL string,
	logger *logger.Logger,
) LinkResolver {
	return &linkResolver{
		links:     links,
		cache:     linkCache,
		geo:       geo,
		devices:   devices,
		evaluator: evaluator,
		recorder:  recorder,
		baseURL:   baseURL,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve runs the lifecycle checks, enriches the request and evaluates the
// link's restrictions. Only an allowed visit reaches the recorder.
func (s *linkResolver) Resolve(ctx context.Context, shortCode string, req *domain.RequestContext) (domain.Decision, error) {
	if req == nil {
		req = &domain.RequestContext{}
	}

	// Step 1: Fetch the link definition (cache-aside)
	link, err := s.fetch(ctx, shortCode)
	if errors.Is(err, domain.ErrLinkNotFound) {
		return domain.Deny(domain.ReasonNotFound), nil
	}
	if err != nil {
		s.logger.Errorw("Failed to load link", "short_code", shortCode, "error", err)
		return domain.Decision{}, err
	}

	// Step 2: Lifecycle
	if !link.IsActive {
		return domain.Deny(domain.ReasonDeactivated), nil
	}
	if link.IsExpired(s.now()) {
		return domain.Deny(domain.ReasonExpired), nil
	}
	if !validator.IsSafeURL(link.TargetURL) {
		s.logger.Warnw("Refusing redirect to unsafe target", "short_code", shortCode)
		return domain.Deny(domain.ReasonUnsafeTarget), nil
	}

	// Step 3: Enrich the visit
	req.Location = s.geo.Locate(ctx, req.ClientIP)
	if req.Location.Country == "" {
		hint := strings.ToUpper(strings.TrimSpace(req.CountryHint))
		if domain.IsCountryCode(hint) && !domain.IsUnknownCountry(hint) {
			req.Location.Country = hint
		}
	}
	req.Device = s.devices.Classify(req.UserAgent)

	// Step 4: Restrictions
	if res := s.evaluator.Evaluate(link.Policy, link.ClickCount, req); !res.Allowed {
		s.logger.Debugw("Visit denied", "short_code", shortCode, "reason", res.Reason)
		return domain.Deny(res.Reason), nil
	}

	// Step 5: Record. The quota claim inside Record is the authoritative check.
	fingerprint, err := s.recorder.Record(ctx, link, req.Visit())
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return domain.Deny(domain.ReasonQuotaExceeded), nil
	}
	if err != nil {
		s.logger.Errorw("Failed to claim click", "short_code", shortCode, "error", err)
		return domain.Decision{}, err
	}

	return domain.Allow(link.TargetURL, link.EffectiveRedirectStatus(), fingerprint), nil
}

// Preview reads the link and its counters straight from the repository
func (s *linkResolver) Preview(ctx context.Context, shortCode string) (*domain.LinkPreview, error) {
	link, err := s.links.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	preview := &domain.LinkPreview{
		ShortCode:        link.ShortCode,
		ShortURL:         s.baseURL + "/" + link.ShortCode,
		Title:            link.Title,
		IsActive:         link.IsActive,
		Expired:          link.IsExpired(s.now()),
		ExpiresAt:        link.ExpiresAt,
		RequiresPassword: link.Policy.HasPassword(),
		RedirectStatus:   link.EffectiveRedirectStatus(),
		ClickCount:       link.ClickCount,
		UniqueClickCount: link.UniqueClickCount,
		QRScanCount:      link.QRScanCount,
		CreatedAt:        link.CreatedAt,
	}
	if !preview.RequiresPassword {
		preview.TargetURL = link.TargetURL
	}

	return preview, nil
}

// Lookup returns the link when it is active and not expired
func (s *linkResolver) Lookup(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	link, err := s.fetch(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !link.IsActive || link.IsExpired(s.now()) {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// fetch implements cache-aside with negative caching. Cache failures are
// logged and fall through to the repository.
func (s *linkResolver) fetch(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	link, hit, err := s.cache.Get(ctx, shortCode)
	if err != nil {
		s.logger.Warnw("Link cache read failed", "short_code", shortCode, "error", err)
	} else if hit {
		if link == nil {
			return nil, domain.ErrLinkNotFound
		}
		return link, nil
	}

	link, err = s.links.FindByShortCode(ctx, shortCode)
	if errors.Is(err, domain.ErrLinkNotFound) {
		if err := s.cache.PutMissing(ctx, shortCode); err != nil {
			s.logger.Warnw("Failed to cache missing link", "short_code", shortCode, "error", err)
		}
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, link); err != nil {
		s.logger.Warnw("Failed to cache link", "short_code", shortCode, "error", err)
	}
	return link, nil
}
