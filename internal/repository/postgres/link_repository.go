package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"linkgate/internal/domain"
	"linkgate/internal/repository"
)

// linkRepository implements the LinkRepository interface for PostgreSQL
type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new PostgreSQL link repository
func NewLinkRepository(db *gorm.DB) repository.LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts a new link record into the database
func (r *linkRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	result := r.db.WithContext(ctx).Create(link)
	if result.Error != nil {
		// Unique constraint violation on short_code
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrShortCodeTaken
		}
		return domain.NewInternalError(result.Error)
	}
	return nil
}

// FindByShortCode retrieves a link by its short code, active or not
func (r *linkRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	var link domain.ShortLink

	result := r.db.WithContext(ctx).
		Where("short_code = ?", shortCode).
		First(&link)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &link, nil
}

// FindByOwnerAndShortCode retrieves a link scoped to its owner
func (r *linkRepository) FindByOwnerAndShortCode(ctx context.Context, ownerID, shortCode string) (*domain.ShortLink, error) {
	var link domain.ShortLink

	result := r.db.WithContext(ctx).
		Where("short_code = ? AND owner_id = ?", shortCode, ownerID).
		First(&link)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &link, nil
}

// ExistsByShortCode checks if a short code exists without loading the full record
func (r *linkRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).
		Model(&domain.ShortLink{}).
		Where("short_code = ?", shortCode).
		Count(&count)

	if result.Error != nil {
		return false, domain.NewInternalError(result.Error)
	}

	return count > 0, nil
}

// ClaimClick atomically increments click_count while it is below max_clicks.
// The comparison and the increment are one UPDATE, so there is no
// read-then-write window for concurrent visits.
func (r *linkRepository) ClaimClick(ctx context.Context, linkID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.ShortLink{}).
		Where("id = ? AND policy_max_clicks IS NOT NULL AND click_count < policy_max_clicks", linkID).
		Updates(map[string]interface{}{
			"click_count":   gorm.Expr("click_count + ?", 1),
			"last_click_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return false, domain.NewInternalError(result.Error)
	}

	return result.RowsAffected == 1, nil
}
