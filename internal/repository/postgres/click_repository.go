package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"linkgate/internal/domain"
	"linkgate/internal/repository"
)

// clickRepository implements the ClickRepository interface for PostgreSQL
type clickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates a new PostgreSQL click repository
func NewClickRepository(db *gorm.DB) repository.ClickRepository {
	return &clickRepository{db: db}
}

// RecordClick writes counters, the visitor mark and the event in one transaction
func (r *clickRepository) RecordClick(ctx context.Context, event *domain.ClickEvent, opts domain.ClickOptions) (domain.ClickResult, error) {
	var res domain.ClickResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// First sight of (link, fingerprint) is the uniqueness determination
		visitor := &domain.LinkVisitor{
			ShortLinkID: event.ShortLinkID,
			Fingerprint: event.Fingerprint,
			FirstSeenAt: event.ClickedAt,
		}
		inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(visitor)
		if inserted.Error != nil {
			return inserted.Error
		}
		res.Unique = inserted.RowsAffected == 1

		updates := map[string]interface{}{
			"last_click_at": event.ClickedAt,
		}
		if !opts.AlreadyCounted {
			updates["click_count"] = gorm.Expr("click_count + ?", 1)
		}
		if res.Unique {
			updates["unique_click_count"] = gorm.Expr("unique_click_count + ?", 1)
		}
		if event.ViaQR {
			updates["qr_scan_count"] = gorm.Expr("qr_scan_count + ?", 1)
		}

		updated := tx.Model(&domain.ShortLink{}).
			Where("id = ?", event.ShortLinkID).
			Updates(updates)
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return domain.ErrLinkNotFound
		}

		event.Unique = res.Unique
		return tx.Create(event).Error
	})

	if err != nil {
		return domain.ClickResult{}, err
	}
	return res, nil
}
