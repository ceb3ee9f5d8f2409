package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/db"
	"github.com/looplens/backend/internal/models"
	"github.com/looplens/backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoEmail    = "demo@looplens.dev"
	demoPassword = "demo-password"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Connect to database
	db.Connect(cfg)

	// Run migrations first
	log.Println("Running database migrations...")
	db.AutoMigrate()

	log.Println("Seeding database with sample data...")

	accountID, err := seedDemoAccount()
	if err != nil {
		log.Fatalf("Error seeding demo account: %v", err)
	}
	if err := seedLogs(accountID); err != nil {
		log.Fatalf("Error seeding logs: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}

func seedDemoAccount() (string, error) {
	var existing models.User
	if err := db.DB.Where("email = ?", demoEmail).First(&existing).Error; err == nil {
		orgService := services.NewOrganizationService(db.DB)
		accountID, err := orgService.AccountIDForUser(existing.ID)
		if err != nil {
			return "", err
		}
		log.Printf("Demo user already exists: %s", demoEmail)
		return accountID, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:     demoEmail,
		Password:  string(hashed),
		FirstName: "Demo",
		LastName:  "User",
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return "", err
	}
	log.Printf("Created demo user: %s", demoEmail)

	orgService := services.NewOrganizationService(db.DB)
	org, _, err := orgService.CreateOrganization(user.ID, "Demo Workspace")
	if err != nil {
		return "", err
	}
	return org.AccountID, nil
}

func seedLogs(accountID string) error {
	var count int64
	if err := db.DB.Model(&models.AILog{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Printf("Account already has %d logs, skipping log seed", count)
		return nil
	}

	samples := []struct {
		input    string
		output   string
		feedback string
		tags     []string
	}{
		{"How do I export my billing history to CSV?", "You can view invoices under Settings.", "thumb_down", []string{"billing", "export"}},
		{"Export all invoices for Q2 as a spreadsheet", "Here is a summary of your recent invoices.", "thumb_down", []string{"billing", "export"}},
		{"Summarize this week's support tickets", "Here is a summary of this week's tickets: ...", "thumb_up", []string{"summaries"}},
		{"Translate this error message to Spanish", "Lo siento, no puedo ayudar con eso.", "thumb_down", []string{"translation"}},
		{"What's the refund policy for annual plans?", "Annual plans can be refunded within 30 days of purchase.", "thumb_up", []string{"billing"}},
		{"Download my data as CSV", "Data export is not something I can help with.", "thumb_down", []string{"export"}},
	}

	now := time.Now().UTC()
	logs := make([]models.AILog, 0, len(samples))
	for i, s := range samples {
		logs = append(logs, models.AILog{
			AccountID:    accountID,
			SessionID:    fmt.Sprintf("seed-session-%d", i+1),
			Timestamp:    now.Add(-time.Duration(i) * time.Hour),
			Input:        s.input,
			Output:       s.output,
			FeedbackType: s.feedback,
			Tags:         pq.StringArray(s.tags),
			Metadata:     models.JSONB{"source": "seed"},
		})
	}
	if err := db.DB.Create(&logs).Error; err != nil {
		return err
	}
	log.Printf("Created %d sample logs", len(logs))
	return nil
}
