// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"harvestlog/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts SeedOptions
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// SeedOptions tunes factory behaviour.
type SeedOptions struct {
	// DryRun logs what would be created without writing to the database.
	DryRun bool
	// SkipBcrypt stores a plaintext password instead of hashing. Dev only.
	SkipBcrypt bool
	// MaxDays bounds how far back generated won_on dates spread.
	MaxDays int
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{db: db, opts: opts, nextID: 1000}
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Email:    gofakeit.Email(),
		FullName: gofakeit.Name(),
		Phone:    gofakeit.Phone(),
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.PasswordHash = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.PasswordHash = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s <%s>", user.FullName, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateChurch constructs and persists a church with a unique slug.
func (f *Factory) CreateChurch(overrides ...func(*models.Church)) (*models.Church, error) {
	name := fmt.Sprintf("%s %s", gofakeit.City(), churchSuffixes[rand.Intn(len(churchSuffixes))])
	church := &models.Church{
		Name: name,
		Slug: fmt.Sprintf("%s-%d", gofakeit.Username(), gofakeit.Number(100, 999)),
	}

	for _, override := range overrides {
		override(church)
	}

	if f.opts.DryRun {
		f.nextID++
		church.ID = f.nextID
		log.Printf("[dry-run] CreateChurch: %s (%s)", church.Name, church.Slug)
		return church, nil
	}

	if err := f.db.Create(church).Error; err != nil {
		return nil, err
	}
	return church, nil
}

// CreateBranch constructs and persists a branch of the given church.
func (f *Factory) CreateBranch(church *models.Church, overrides ...func(*models.Branch)) (*models.Branch, error) {
	branch := &models.Branch{
		ChurchID: church.ID,
		Name:     fmt.Sprintf("%s %d", gofakeit.Street(), gofakeit.Number(1, 99)),
	}

	for _, override := range overrides {
		override(branch)
	}

	if f.opts.DryRun {
		f.nextID++
		branch.ID = f.nextID
		log.Printf("[dry-run] CreateBranch: church=%d %s", branch.ChurchID, branch.Name)
		return branch, nil
	}

	if err := f.db.Create(branch).Error; err != nil {
		return nil, err
	}
	return branch, nil
}

// CreateMembership grants user a role within church (optionally one branch).
func (f *Factory) CreateMembership(user *models.User, church *models.Church, role string, branchID *uint) (*models.Membership, error) {
	membership := &models.Membership{
		UserID:   user.ID,
		ChurchID: church.ID,
		BranchID: branchID,
		Role:     role,
		Status:   models.MembershipActive,
	}

	if f.opts.DryRun {
		f.nextID++
		membership.ID = f.nextID
		log.Printf("[dry-run] CreateMembership: user=%d church=%d role=%s", user.ID, church.ID, role)
		return membership, nil
	}

	if err := f.db.Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// CreateEvangelist creates an approved user with an active evangelist
// membership in the church.
func (f *Factory) CreateEvangelist(church *models.Church, branchID *uint) (*models.User, error) {
	user, err := f.CreateUser(func(u *models.User) { u.Approved = true })
	if err != nil {
		return nil, err
	}
	if _, err := f.CreateMembership(user, church, models.RoleEvangelist, branchID); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildSoul constructs a soul record without persisting it. Useful for batching.
func (f *Factory) BuildSoul(evangelist *models.User, church *models.Church, branchID *uint, overrides ...func(*models.Soul)) *models.Soul {
	soul := &models.Soul{
		EvangelistID: evangelist.ID,
		ChurchID:     church.ID,
		BranchID:     branchID,
		Name:         gofakeit.Name(),
		Phone:        gofakeit.Phone(),
		Email:        gofakeit.Email(),
		Residence:    gofakeit.City(),
		Notes:        gofakeit.Sentence(8),
	}

	// realistic won_on spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	// #nosec G404: acceptable for seeding
	daysBack := rand.Intn(maxDays)
	soul.WonOn = time.Now().UTC().AddDate(0, 0, -daysBack).Truncate(24 * time.Hour)

	for _, override := range overrides {
		override(soul)
	}
	return soul
}

// CreateSoul constructs and persists a soul record for the evangelist.
func (f *Factory) CreateSoul(evangelist *models.User, church *models.Church, branchID *uint, overrides ...func(*models.Soul)) (*models.Soul, error) {
	soul := f.BuildSoul(evangelist, church, branchID, overrides...)

	if f.opts.DryRun {
		f.nextID++
		soul.ID = f.nextID
		log.Printf("[dry-run] CreateSoul: evangelist=%d name=%q won_on=%s", soul.EvangelistID, soul.Name, soul.WonOn.Format("2006-01-02"))
		return soul, nil
	}

	if err := f.db.Create(soul).Error; err != nil {
		return nil, err
	}
	return soul, nil
}

// CreateSoulsBatch persists multiple soul records in a single DB call when possible.
func (f *Factory) CreateSoulsBatch(souls []*models.Soul) error {
	if f.opts.DryRun {
		for _, s := range souls {
			f.nextID++
			s.ID = f.nextID
		}
		log.Printf("[dry-run] CreateSoulsBatch: %d souls (no DB write)", len(souls))
		return nil
	}
	return f.db.Create(&souls).Error
}

// CreateAccessRequest persists a pending access request from user to church.
func (f *Factory) CreateAccessRequest(user *models.User, church *models.Church, branchID *uint) (*models.AccessRequest, error) {
	request := &models.AccessRequest{
		UserID:   user.ID,
		ChurchID: church.ID,
		BranchID: branchID,
		Note:     gofakeit.Sentence(6),
		Status:   models.RequestPending,
	}

	if f.opts.DryRun {
		f.nextID++
		request.ID = f.nextID
		log.Printf("[dry-run] CreateAccessRequest: user=%d church=%d", request.UserID, request.ChurchID)
		return request, nil
	}

	if err := f.db.Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

var churchSuffixes = []string{
	"Chapel", "Assembly", "Tabernacle", "Cathedral", "Fellowship",
	"Worship Centre", "Prayer Camp", "Mission", "Temple",
}
