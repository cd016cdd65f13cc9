package migration

import (
	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/config"
	"github.com/brightlearn/campus/internal/seed"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, cfg config.Config, log *zap.Logger) error {
		// sqlite deployments have no migrate driver matching the pure-Go
		// sqlite dialect, so the schema comes from the gorm models there.
		if cfg.DBType == "sqlite" {
			if err := conn.AutoMigrate(&domain.Account{}, &domain.Session{}); err != nil {
				return err
			}
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB, cfg.DBType); err != nil {
				return err
			}
		}

		return seed.EnsureBootstrapAdmin(conn, node, cfg, log)
	}),
)
