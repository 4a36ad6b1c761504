package database

import (
	"fmt"

	"kidquest_backend/internal/config"
	"kidquest_backend/internal/model"
	"kidquest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.ParentChildLink{},
		&model.LearningContent{},
		&model.UserLearningProgress{},
		&model.Badge{},
		&model.UserBadge{},
		&model.RoadmapProgress{},
	}
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func InitDB(cfg *config.DatabaseConfig, migrate bool, logLevel gormlogger.LogLevel) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Driver))

	if !migrate {
		return db, nil
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Log.Info("Database migration completed")
	return db, nil
}

// Migrate creates the schema and seeds the badge catalog.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	return SeedBadges(db)
}

// SeedBadges inserts catalog badges that are missing by name; existing rows are left alone.
func SeedBadges(db *gorm.DB) error {
	for _, b := range model.DefaultBadges() {
		var count int64
		if err := db.Model(&model.Badge{}).Where("name = ?", b.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		badge := b
		if err := db.Create(&badge).Error; err != nil {
			return err
		}
	}
	return nil
}
