package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"linkgate/internal/domain"
)

// Migrate creates or updates the tables owned by the redirect engine
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.ShortLink{}, &domain.LinkVisitor{}, &domain.ClickEvent{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
