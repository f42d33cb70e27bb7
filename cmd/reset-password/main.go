package main

import (
	"flag"
	"log"

	"siops/internal/model"
	"siops/pkg/config"
	"siops/pkg/database"

	"github.com/google/uuid"
)

func main() {
	email := flag.String("email", "admin@example.com", "account to reset")
	newPassword := flag.String("password", "admin123", "new password")
	flag.Parse()

	// 1. Load config and connect
	cfg := config.Load()
	db := database.ConnectDB(cfg.Database)

	// 2. Find user
	var user model.User
	if err := db.Where("email = ?", *email).First(&user).Error; err != nil {
		log.Fatalf("❌ User %s not found in database: %v", *email, err)
	}

	// 3. Hash new password
	if err := user.SetPassword(*newPassword); err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	// 4. Update and end every open session
	if err := db.Model(&user).Updates(map[string]interface{}{
		"password":      user.Password,
		"token_version": uuid.New().String(),
	}).Error; err != nil {
		log.Fatalf("❌ Failed to update password in DB: %v", err)
	}

	log.Printf("✅ Success! Password for %s has been reset", *email)
}
