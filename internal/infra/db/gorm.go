package db

import (
	"log"
	"os"
	"time"

	"farmops/internal/config"
	"farmops/internal/domain/model"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config, logg logrus.FieldLogger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: gormLogger(cfg),
		//一意制約違反を gorm.ErrDuplicatedKey にする
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	//コネクションプール
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}

	if pluginErr := gdb.Use(otelgorm.NewPlugin()); pluginErr != nil {
		logg.WithError(pluginErr).Warn("db connected but failed to install otelgorm plugin")
	}
	return gdb, nil
}

func gormLogger(cfg config.Config) logger.Interface {
	level := logger.Warn
	if cfg.IsProd() {
		level = logger.Error
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      level,
			SlowThreshold: time.Second,
		},
	)
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.Item{},
		&model.InventoryEvent{},
		&model.Customer{},
		&model.Schedule{},
		&model.Order{},
		&model.LineItem{},
		&model.Purchase{},
		&model.Sale{},
		&model.AuditLog{},
	)
}
