// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"

	"harvestlog/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumChurches          int
	BranchesPerChurch    int
	EvangelistsPerChurch int
	SoulsPerEvangelist   int
	ShouldClean          bool
}

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d churches...", opts.NumChurches)

	// Clear existing data to avoid conflicts if requested
	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	factory := NewFactory(db, SeedOptions{})

	var totalSouls, totalEvangelists int
	for i := 0; i < opts.NumChurches; i++ {
		church, err := factory.CreateChurch()
		if err != nil {
			return fmt.Errorf("failed to create church: %w", err)
		}

		branches := make([]*models.Branch, 0, opts.BranchesPerChurch)
		for j := 0; j < opts.BranchesPerChurch; j++ {
			branch, err := factory.CreateBranch(church)
			if err != nil {
				return fmt.Errorf("failed to create branch: %w", err)
			}
			branches = append(branches, branch)
		}

		// Every church gets a pastor admin, every branch a branch admin.
		pastor, err := factory.CreateUser(func(u *models.User) { u.Approved = true })
		if err != nil {
			return fmt.Errorf("failed to create pastor: %w", err)
		}
		if _, err := factory.CreateMembership(pastor, church, models.RolePastorAdmin, nil); err != nil {
			return fmt.Errorf("failed to create pastor membership: %w", err)
		}
		for _, branch := range branches {
			admin, err := factory.CreateUser(func(u *models.User) { u.Approved = true })
			if err != nil {
				return fmt.Errorf("failed to create branch admin: %w", err)
			}
			if _, err := factory.CreateMembership(admin, church, models.RoleBranchAdmin, &branch.ID); err != nil {
				return fmt.Errorf("failed to create branch admin membership: %w", err)
			}
		}

		for j := 0; j < opts.EvangelistsPerChurch; j++ {
			branchID := randomBranchID(branches)
			evangelist, err := factory.CreateEvangelist(church, branchID)
			if err != nil {
				return fmt.Errorf("failed to create evangelist: %w", err)
			}
			totalEvangelists++

			souls := make([]*models.Soul, 0, opts.SoulsPerEvangelist)
			for k := 0; k < opts.SoulsPerEvangelist; k++ {
				souls = append(souls, factory.BuildSoul(evangelist, church, branchID))
			}
			if len(souls) > 0 {
				if err := factory.CreateSoulsBatch(souls); err != nil {
					return fmt.Errorf("failed to create souls: %w", err)
				}
				totalSouls += len(souls)
			}
		}

		// A couple of pending requests per church keep the approval queue real.
		for j := 0; j < 2; j++ {
			applicant, err := factory.CreateUser()
			if err != nil {
				return fmt.Errorf("failed to create applicant: %w", err)
			}
			if _, err := factory.CreateAccessRequest(applicant, church, randomBranchID(branches)); err != nil {
				return fmt.Errorf("failed to create access request: %w", err)
			}
		}

		log.Printf("✓ Church %q seeded (%d branches)", church.Name, len(branches))
	}

	log.Printf("✓ %d evangelists and %d souls created", totalEvangelists, totalSouls)
	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE approval_logs, souls, access_requests, memberships, branches, churches, platform_admins, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

// randomBranchID picks one of the branches, or nil for a church-wide scope.
func randomBranchID(branches []*models.Branch) *uint {
	if len(branches) == 0 {
		return nil
	}
	//nolint:gosec // Weak random number generator is fine for seeding
	if rand.Intn(4) == 0 {
		return nil
	}
	return &branches[rand.Intn(len(branches))].ID
}
