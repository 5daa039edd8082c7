package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/models"
	"github.com/capitalcompass/tradedesk/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.AccountName{},
		&models.AccountSnapshot{},
		&models.TradingPair{},
		&models.NewsStatus{},
		&models.Expert{},
		&models.ExpertPair{},
		&models.ExpertAssignment{},
		&models.ActivityLog{},
	)
}

// SeedConfig carries the bootstrap admin credentials. They come from
// configuration, never from source.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Seed provisions the bootstrap admin account when no admin exists yet.
func Seed(db *gorm.DB, cfg SeedConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return errors.New("bootstrap admin password is required when admin email is set")
	}

	hashed, err := crypto.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}

	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = "Administrator"
	}

	admin := models.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         name,
		Role:         models.RoleAdmin,
		State:        models.UserStateActive,
		IsVerified:   true,
	}

	return db.Create(&admin).Error
}
