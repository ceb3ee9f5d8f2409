package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/db"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Connect to database
	db.Connect(cfg)

	// Run migrations
	log.Println("Running database migrations...")
	db.AutoMigrate()

	log.Println("✅ Database migrations completed successfully!")
}
