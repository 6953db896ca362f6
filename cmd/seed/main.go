// Command main runs the database seeder for HarvestLog.
package main

import (
	"flag"
	"log"

	"harvestlog/internal/config"
	"harvestlog/internal/database"
	"harvestlog/internal/seed"
)

func main() {
	// Parse command line flags
	numChurches := flag.Int("churches", 3, "Number of churches to create")
	branches := flag.Int("branches", 2, "Branches per church")
	evangelists := flag.Int("evangelists", 10, "Evangelists per church")
	souls := flag.Int("souls", 20, "Souls per evangelist")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d churches, %d branches each, %d evangelists each, %d souls each, clean=%v\n",
		*numChurches, *branches, *evangelists, *souls, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumChurches:          *numChurches,
		BranchesPerChurch:    *branches,
		EvangelistsPerChurch: *evangelists,
		SoulsPerEvangelist:   *souls,
		ShouldClean:          *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Println("📧 All test users have the password: password123")
}
