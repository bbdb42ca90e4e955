package database

import (
	"backend/internal/model"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Request{},
		&model.Approval{},
		&model.AuditLog{},
		&model.Message{},
		&model.Announcement{},
		&model.Attachment{},
	)
	if err != nil {
		log.WithError(err).Warn("failed to auto-migrate models")
	}

	// Rounds are unique per request, and at most one approval per request
	// may still be pending and valid. AutoMigrate cannot express the
	// partial index so both are created by hand.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_approvals_request_round
			ON approvals (request_id, approval_round)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_approvals_one_active
			ON approvals (request_id)
			WHERE decision = 'PENDING' AND is_valid = true`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			log.WithError(err).Warn("failed to create approval index")
		}
	}

	return db, nil
}
