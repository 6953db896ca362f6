// Package main provides platform admin management utilities for HarvestLog.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"harvestlog/internal/config"
	"harvestlog/internal/database"
	"harvestlog/internal/models"

	"gorm.io/gorm"
)

// AdminSetup provides a utility to promote or demote platform admins.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin/main.go promote <user_id>      - Promote user to platform admin")
		fmt.Println("  go run ./cmd/admin/main.go demote <user_id>       - Demote user from platform admin")
		fmt.Println("  go run ./cmd/admin/main.go list-admins            - List all platform admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	command := os.Args[1]

	switch command {
	case "promote":
		if len(os.Args) < 3 {
			fmt.Println("Usage: go run ./cmd/admin/main.go promote <user_id>")
			os.Exit(1)
		}
		promoteToAdmin(db, os.Args[2])

	case "demote":
		if len(os.Args) < 3 {
			fmt.Println("Usage: go run ./cmd/admin/main.go demote <user_id>")
			os.Exit(1)
		}
		demoteFromAdmin(db, os.Args[2])

	case "list-admins":
		listAdmins(db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func findUser(db *gorm.DB, userID string) *models.User {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %s not found\n", userID)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}
	return &user
}

func promoteToAdmin(db *gorm.DB, userID string) {
	user := findUser(db, userID)

	var existing models.PlatformAdmin
	err := db.Where("user_id = ?", user.ID).First(&existing).Error
	if err == nil {
		fmt.Printf("User %s (ID: %d) is already a platform admin\n", user.FullName, user.ID)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("Database error: %v", err)
	}

	if err := db.Create(&models.PlatformAdmin{UserID: user.ID}).Error; err != nil {
		log.Fatalf("Failed to promote user: %v", err)
	}

	fmt.Printf("✅ Successfully promoted %s (ID: %d) to platform admin\n", user.FullName, user.ID)
}

func demoteFromAdmin(db *gorm.DB, userID string) {
	user := findUser(db, userID)

	result := db.Where("user_id = ?", user.ID).Delete(&models.PlatformAdmin{})
	if result.Error != nil {
		log.Fatalf("Failed to demote user: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		fmt.Printf("User %s (ID: %d) is not a platform admin\n", user.FullName, user.ID)
		return
	}

	fmt.Printf("✅ Successfully demoted %s (ID: %d) from platform admin\n", user.FullName, user.ID)
}

func listAdmins(db *gorm.DB) {
	var admins []models.PlatformAdmin
	if err := db.Preload("User").Find(&admins).Error; err != nil {
		log.Fatalf("Failed to fetch platform admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No platform admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Platform Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Name: %s | Email: %s\n", admin.UserID, admin.User.FullName, admin.User.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
