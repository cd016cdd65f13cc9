// Package seed bootstraps the first admin account for self-hosted setups.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/auth/password"
	"github.com/brightlearn/campus/internal/config"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureBootstrapAdmin creates an admin account when bootstrapping is
// enabled and the store holds no accounts yet. Runs are idempotent: a
// non-empty store is left untouched.
func EnsureBootstrapAdmin(db *gorm.DB, node *snowflake.Node, cfg config.Config, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if !cfg.BootstrapAdmin {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapEmail))
	secret := cfg.BootstrapSecret
	if email == "" || secret == "" {
		return errors.New("bootstrap admin requires email and password")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Account{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hash, err := password.Hash(secret)
		if err != nil {
			return err
		}

		admin := &domain.Account{
			ID:            node.Generate(),
			Email:         email,
			PasswordHash:  &hash,
			DisplayName:   "Administrator",
			Role:          domain.RoleAdmin,
			Active:        true,
			EmailVerified: true,
		}
		if err := tx.Create(admin).Error; err != nil {
			return err
		}

		log.Info("bootstrap admin created", zap.String("email", email))
		return nil
	})
}
