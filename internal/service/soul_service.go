package service

import (
	"context"
	"strings"
	"time"

	"harvestlog/internal/authz"
	"harvestlog/internal/models"
	"harvestlog/internal/observability"
	"harvestlog/internal/repository"
	"harvestlog/internal/validation"
)

// SoulService owns soul record CRUD for evangelists and the admin read views.
type SoulService struct {
	souls   repository.SoulRepository
	timeout time.Duration
}

func NewSoulService(souls repository.SoulRepository, timeout time.Duration) *SoulService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &SoulService{souls: souls, timeout: timeout}
}

type LogSoulInput struct {
	ChurchID  uint
	Name      string
	Phone     string
	Email     string
	Residence string
	Notes     string
	WonOn     time.Time
}

// LogSoul records a soul for the acting evangelist. Requires an approved
// account with an active evangelist membership in the church; the record is
// stamped with the membership's church and branch.
func (s *SoulService) LogSoul(ctx context.Context, actor *authz.AuthContext, in LogSoulInput) (*models.Soul, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if in.ChurchID == 0 {
		return nil, models.NewValidationError("church_id is required")
	}
	if !actor.CanLogSouls(in.ChurchID) {
		if !actor.Approved {
			return nil, models.NewForbiddenError("your account is pending approval")
		}
		return nil, models.NewForbiddenError("no active evangelist membership in this church")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("name is required")
	}
	if len(name) > 200 {
		return nil, models.NewValidationError("name too long (max 200 characters)")
	}
	if in.Email != "" && !validation.ValidEmail(in.Email) {
		return nil, models.NewValidationError("invalid email address")
	}

	wonOn := in.WonOn
	if wonOn.IsZero() {
		wonOn = time.Now().UTC()
	}
	if wonOn.After(time.Now().UTC().Add(24 * time.Hour)) {
		return nil, models.NewValidationError("won_on cannot be in the future")
	}

	scope, _ := actor.EvangelistScope(in.ChurchID)

	soul := &models.Soul{
		EvangelistID: actor.UserID,
		ChurchID:     in.ChurchID,
		BranchID:     scope.BranchID,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Residence:    strings.TrimSpace(in.Residence),
		Notes:        strings.TrimSpace(in.Notes),
		WonOn:        wonOn,
	}
	if err := s.souls.Create(ctx, soul); err != nil {
		return nil, err
	}

	observability.RecordSoulLogged(in.ChurchID)
	return soul, nil
}

// ListMine returns the actor's own soul records.
func (s *SoulService) ListMine(ctx context.Context, actor *authz.AuthContext, from, to time.Time, limit, offset int) ([]models.Soul, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.souls.List(ctx, repository.SoulFilter{
		EvangelistID: actor.UserID,
		From:         from,
		To:           to,
		Limit:        limit,
		Offset:       offset,
	})
}

// ListForAdmin returns souls for a church (optionally one branch) the actor
// may view.
func (s *SoulService) ListForAdmin(ctx context.Context, actor *authz.AuthContext, churchID uint, branchID *uint, from, to time.Time, limit, offset int) ([]models.Soul, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if !actor.CanViewBranch(churchID, branchID) {
		return nil, models.NewForbiddenError("you may not view souls for this church or branch")
	}

	return s.souls.List(ctx, repository.SoulFilter{
		ChurchID: churchID,
		BranchID: branchID,
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   offset,
	})
}

type UpdateSoulInput struct {
	Name      string
	Phone     string
	Email     string
	Residence string
	Notes     string
	WonOn     time.Time
}

// UpdateSoul edits a record the actor owns.
func (s *SoulService) UpdateSoul(ctx context.Context, actor *authz.AuthContext, soulID uint, in UpdateSoulInput) (*models.Soul, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	soul, err := s.souls.GetByID(ctx, soulID)
	if err != nil {
		return nil, err
	}
	if soul.EvangelistID != actor.UserID {
		return nil, models.NewForbiddenError("you may only edit your own records")
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		soul.Name = name
	}
	if in.Email != "" {
		if !validation.ValidEmail(in.Email) {
			return nil, models.NewValidationError("invalid email address")
		}
		soul.Email = strings.TrimSpace(in.Email)
	}
	if in.Phone != "" {
		soul.Phone = strings.TrimSpace(in.Phone)
	}
	if in.Residence != "" {
		soul.Residence = strings.TrimSpace(in.Residence)
	}
	if in.Notes != "" {
		soul.Notes = strings.TrimSpace(in.Notes)
	}
	if !in.WonOn.IsZero() {
		if in.WonOn.After(time.Now().UTC().Add(24 * time.Hour)) {
			return nil, models.NewValidationError("won_on cannot be in the future")
		}
		soul.WonOn = in.WonOn
	}

	if err := s.souls.Update(ctx, soul); err != nil {
		return nil, err
	}
	return soul, nil
}

// DeleteSoul removes a record the actor owns.
func (s *SoulService) DeleteSoul(ctx context.Context, actor *authz.AuthContext, soulID uint) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	soul, err := s.souls.GetByID(ctx, soulID)
	if err != nil {
		return err
	}
	if soul.EvangelistID != actor.UserID {
		return models.NewForbiddenError("you may only delete your own records")
	}
	return s.souls.Delete(ctx, soulID)
}
