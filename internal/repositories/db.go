// Package repositories provides data access layer implementations.
// Every balance mutation happens here as a conditional SQL update inside a
// database transaction, paired with the status transition that causes it.
package repositories

import (
	"fmt"
	"log"
	"os"
	"time"

	"digipay/internal/config"
	"digipay/internal/models"
	"digipay/internal/repositories/cache"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance used across the application.
var DB *gorm.DB
var RedisClient *redis.Client

// migrated lists every table owned by the service.
var migrated = []interface{}{
	&models.Merchant{},
	&models.CommissionTier{},
	&models.Transaction{},
	&models.Settlement{},
	&models.WebhookSubscription{},
	&models.WebhookDelivery{},
	&models.APIKey{},
}

// InitDB initializes the database connection.
// It sets up the connection pool, performs migrations,
// and connects Redis for the settlement queue.
func InitDB(settings config.Settings) error {
	if err := initPostgres(settings.DB); err != nil {
		return err
	}

	RedisClient = cache.NewRedisClient(&cache.RedisConfig{
		Host:     settings.Redis.Host,
		Port:     settings.Redis.Port,
		Password: settings.Redis.Password,
		DB:       settings.Redis.DB,
	})

	if err := DB.AutoMigrate(migrated...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	log.Println("✅ PostgreSQL connected & migrations applied successfully!")
	return nil
}

func initPostgres(cfg config.DBSettings) error {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)

	// Configure GORM logger to ignore "record not found" errors
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	DB = db
	return nil
}

// Close releases the postgres pool and the redis client.
func Close() {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close database connection: %v", err)
			}
		}
	}
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			log.Printf("⚠️ Failed to close Redis connection: %v", err)
		}
	}
}

// ResetDatabase drops and recreates every service table.
func ResetDatabase() error {
	if err := DB.Migrator().DropTable(migrated...); err != nil {
		return err
	}
	return DB.AutoMigrate(migrated...)
}
