package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"accessgate-backend/config"
	"accessgate-backend/models"
)

var DB *gorm.DB

// Connect opens the shared GORM connection.
func Connect(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&models.Application{}, &models.Permission{}, &models.Role{},
		&models.User{}, &models.AuditEvent{},
	)
}
