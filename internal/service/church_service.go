package service

import (
	"context"
	"strings"
	"time"

	"harvestlog/internal/authz"
	"harvestlog/internal/models"
	"harvestlog/internal/repository"
	"harvestlog/internal/validation"
)

// ChurchService owns church and branch management. Creation is platform
// admin only; listing is open to any authenticated user (needed for the
// onboarding request form).
type ChurchService struct {
	churches repository.ChurchRepository
	timeout  time.Duration
}

func NewChurchService(churches repository.ChurchRepository, timeout time.Duration) *ChurchService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ChurchService{churches: churches, timeout: timeout}
}

func (s *ChurchService) List(ctx context.Context) ([]models.Church, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.churches.List(ctx)
}

func (s *ChurchService) GetBySlug(ctx context.Context, slug string) (*models.Church, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.churches.GetBySlug(ctx, slug)
}

// CreateChurch creates a church with a slug derived from the name unless one
// is supplied.
func (s *ChurchService) CreateChurch(ctx context.Context, actor *authz.AuthContext, name, slug string) (*models.Church, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if !actor.CanManageChurches() {
		return nil, models.NewForbiddenError("platform admin access required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name is required")
	}
	if slug == "" {
		slug = validation.Slugify(name)
	}
	if err := validation.ValidateSlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	church := &models.Church{Name: name, Slug: slug}
	if err := s.churches.Create(ctx, church); err != nil {
		return nil, err
	}
	return church, nil
}

// CreateBranch adds a branch to a church.
func (s *ChurchService) CreateBranch(ctx context.Context, actor *authz.AuthContext, churchID uint, name string) (*models.Branch, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if !actor.CanManageChurches() && actor.EffectiveRole(churchID) < authz.RolePastorAdmin {
		return nil, models.NewForbiddenError("pastor admin access required for this church")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name is required")
	}

	if _, err := s.churches.GetByID(ctx, churchID); err != nil {
		return nil, err
	}

	branch := &models.Branch{ChurchID: churchID, Name: name}
	if err := s.churches.CreateBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}
