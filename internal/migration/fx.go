package migration

import (
	"github.com/smallbiznis/entitle/internal/config"
	"github.com/smallbiznis/entitle/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// SQL migrations target postgres; sqlite/mysql setups migrate out of band.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.SeedDemo {
			return seed.EnsureDemoCatalog(conn)
		}
		return nil
	}),
)
