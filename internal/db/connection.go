package db

import (
	"fmt"
	"log"

	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection
func Connect(cfg *config.Config) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})

	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("Database connected successfully")
}

// AutoMigrate runs database migrations
func AutoMigrate() {
	for _, model := range []interface{}{
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.AILog{},
		&models.Insight{},
		&models.DecisionCard{},
	} {
		if err := DB.AutoMigrate(model); err != nil {
			log.Fatalf("Migration failed for %T: %v", model, err)
		}
	}
	log.Println("All database migrations completed successfully")
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
