package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"harvestlog/internal/cache"
	"harvestlog/internal/config"
	"harvestlog/internal/database"
	"harvestlog/internal/models"
	"harvestlog/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	// Connect DB
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap root admin: %w", err)
	}

	if opts.SeedDemoData {
		if err := seed.Seed(db, seed.Options{
			NumChurches:          3,
			BranchesPerChurch:    2,
			EvangelistsPerChurch: 5,
			SoulsPerEvangelist:   10,
		}); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureRootAdmin promotes the configured ROOT_ADMIN_EMAIL account to platform
// admin at startup. The account must already exist; a missing account is only
// a warning so a fresh deployment can register it first.
func ensureRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	email := strings.TrimSpace(strings.ToLower(cfg.RootAdminEmail))
	if email == "" {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		findErr := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			log.Printf("root admin bootstrap: no account for %s yet, skipping", email)
			return nil
		case findErr != nil:
			return findErr
		}

		var existing models.PlatformAdmin
		adminErr := tx.Where("user_id = ?", user.ID).First(&existing).Error
		switch {
		case errors.Is(adminErr, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.PlatformAdmin{UserID: user.ID}).Error; err != nil {
				return err
			}
			log.Printf("root admin bootstrap: promoted %s (user %d)", email, user.ID)
		case adminErr != nil:
			return adminErr
		}
		return nil
	})
}
