package service

import (
	"context"
	"testing"
	"time"

	"harvestlog/internal/models"
	"harvestlog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Function-field stubs. Nil fields fall back to harmless defaults so each
// test only wires the calls it cares about.

type userRepoStub struct {
	getByIDFn              func(ctx context.Context, id uint) (*models.User, error)
	getByEmailFn           func(ctx context.Context, email string) (*models.User, error)
	createFn               func(ctx context.Context, user *models.User) error
	updateFn               func(ctx context.Context, user *models.User) error
	setApprovedFn          func(ctx context.Context, id uint, approved bool) error
	listFn                 func(ctx context.Context, limit, offset int) ([]models.User, error)
	isPlatformAdminFn      func(ctx context.Context, userID uint) (bool, error)
	promotePlatformAdminFn func(ctx context.Context, userID uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.User{ID: id}, nil
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn != nil {
		return s.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	return nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, user)
	}
	return nil
}

func (s *userRepoStub) SetApproved(ctx context.Context, id uint, approved bool) error {
	if s.setApprovedFn != nil {
		return s.setApprovedFn(ctx, id, approved)
	}
	return nil
}

func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (s *userRepoStub) IsPlatformAdmin(ctx context.Context, userID uint) (bool, error) {
	if s.isPlatformAdminFn != nil {
		return s.isPlatformAdminFn(ctx, userID)
	}
	return false, nil
}

func (s *userRepoStub) PromotePlatformAdmin(ctx context.Context, userID uint) error {
	if s.promotePlatformAdminFn != nil {
		return s.promotePlatformAdminFn(ctx, userID)
	}
	return nil
}

type membershipRepoStub struct {
	activeForUserFn   func(ctx context.Context, userID uint) ([]models.Membership, error)
	setBranchFn       func(ctx context.Context, userID, churchID uint, branchID *uint) error
	disableFn         func(ctx context.Context, userID, churchID uint, role string) error
	listEvangelistsFn func(ctx context.Context, churchID uint, branchID *uint) ([]models.Membership, error)
}

func (s *membershipRepoStub) ActiveForUser(ctx context.Context, userID uint) ([]models.Membership, error) {
	if s.activeForUserFn != nil {
		return s.activeForUserFn(ctx, userID)
	}
	return nil, nil
}

func (s *membershipRepoStub) SetBranch(ctx context.Context, userID, churchID uint, branchID *uint) error {
	if s.setBranchFn != nil {
		return s.setBranchFn(ctx, userID, churchID, branchID)
	}
	return nil
}

func (s *membershipRepoStub) Disable(ctx context.Context, userID, churchID uint, role string) error {
	if s.disableFn != nil {
		return s.disableFn(ctx, userID, churchID, role)
	}
	return nil
}

func (s *membershipRepoStub) ListEvangelists(ctx context.Context, churchID uint, branchID *uint) ([]models.Membership, error) {
	if s.listEvangelistsFn != nil {
		return s.listEvangelistsFn(ctx, churchID, branchID)
	}
	return nil, nil
}

type churchRepoStub struct {
	getByIDFn      func(ctx context.Context, id uint) (*models.Church, error)
	getBySlugFn    func(ctx context.Context, slug string) (*models.Church, error)
	listFn         func(ctx context.Context) ([]models.Church, error)
	createFn       func(ctx context.Context, church *models.Church) error
	createBranchFn func(ctx context.Context, branch *models.Branch) error
	getBranchFn    func(ctx context.Context, id uint) (*models.Branch, error)
	listBranchesFn func(ctx context.Context, churchID uint) ([]models.Branch, error)
}

func (s *churchRepoStub) GetByID(ctx context.Context, id uint) (*models.Church, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.Church{ID: id}, nil
}

func (s *churchRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Church, error) {
	if s.getBySlugFn != nil {
		return s.getBySlugFn(ctx, slug)
	}
	return &models.Church{Slug: slug}, nil
}

func (s *churchRepoStub) List(ctx context.Context) ([]models.Church, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *churchRepoStub) Create(ctx context.Context, church *models.Church) error {
	if s.createFn != nil {
		return s.createFn(ctx, church)
	}
	return nil
}

func (s *churchRepoStub) CreateBranch(ctx context.Context, branch *models.Branch) error {
	if s.createBranchFn != nil {
		return s.createBranchFn(ctx, branch)
	}
	return nil
}

func (s *churchRepoStub) GetBranch(ctx context.Context, id uint) (*models.Branch, error) {
	if s.getBranchFn != nil {
		return s.getBranchFn(ctx, id)
	}
	return &models.Branch{ID: id}, nil
}

func (s *churchRepoStub) ListBranches(ctx context.Context, churchID uint) ([]models.Branch, error) {
	if s.listBranchesFn != nil {
		return s.listBranchesFn(ctx, churchID)
	}
	return nil, nil
}

type accessRequestRepoStub struct {
	getByIDFn     func(ctx context.Context, id uint) (*models.AccessRequest, error)
	createFn      func(ctx context.Context, req *models.AccessRequest) error
	listPendingFn func(ctx context.Context, churchIDs []uint, branchID *uint) ([]models.AccessRequest, error)
	listForUserFn func(ctx context.Context, userID uint) ([]models.AccessRequest, error)
	hasPendingFn  func(ctx context.Context, userID, churchID uint) (bool, error)
	decideFn      func(ctx context.Context, requestID, actorID uint, approve bool, assignBranchID *uint) (*models.AccessRequest, error)
}

func (s *accessRequestRepoStub) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.AccessRequest{ID: id, Status: models.RequestPending}, nil
}

func (s *accessRequestRepoStub) Create(ctx context.Context, req *models.AccessRequest) error {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return nil
}

func (s *accessRequestRepoStub) ListPending(ctx context.Context, churchIDs []uint, branchID *uint) ([]models.AccessRequest, error) {
	if s.listPendingFn != nil {
		return s.listPendingFn(ctx, churchIDs, branchID)
	}
	return nil, nil
}

func (s *accessRequestRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.AccessRequest, error) {
	if s.listForUserFn != nil {
		return s.listForUserFn(ctx, userID)
	}
	return nil, nil
}

func (s *accessRequestRepoStub) HasPending(ctx context.Context, userID, churchID uint) (bool, error) {
	if s.hasPendingFn != nil {
		return s.hasPendingFn(ctx, userID, churchID)
	}
	return false, nil
}

func (s *accessRequestRepoStub) Decide(ctx context.Context, requestID, actorID uint, approve bool, assignBranchID *uint) (*models.AccessRequest, error) {
	if s.decideFn != nil {
		return s.decideFn(ctx, requestID, actorID, approve, assignBranchID)
	}
	status := models.RequestRejected
	if approve {
		status = models.RequestApproved
	}
	return &models.AccessRequest{ID: requestID, Status: status, HandledBy: &actorID}, nil
}

type soulRepoStub struct {
	createFn      func(ctx context.Context, soul *models.Soul) error
	getByIDFn     func(ctx context.Context, id uint) (*models.Soul, error)
	updateFn      func(ctx context.Context, soul *models.Soul) error
	deleteFn      func(ctx context.Context, id uint) error
	listFn        func(ctx context.Context, filter repository.SoulFilter) ([]models.Soul, error)
	countFn       func(ctx context.Context, filter repository.SoulFilter) (int64, error)
	leaderboardFn func(ctx context.Context, churchID uint, branchID *uint, from, to time.Time) ([]repository.LeaderboardRow, error)
}

func (s *soulRepoStub) Create(ctx context.Context, soul *models.Soul) error {
	if s.createFn != nil {
		return s.createFn(ctx, soul)
	}
	return nil
}

func (s *soulRepoStub) GetByID(ctx context.Context, id uint) (*models.Soul, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.Soul{ID: id}, nil
}

func (s *soulRepoStub) Update(ctx context.Context, soul *models.Soul) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, soul)
	}
	return nil
}

func (s *soulRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *soulRepoStub) List(ctx context.Context, filter repository.SoulFilter) ([]models.Soul, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *soulRepoStub) Count(ctx context.Context, filter repository.SoulFilter) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx, filter)
	}
	return 0, nil
}

func (s *soulRepoStub) Leaderboard(ctx context.Context, churchID uint, branchID *uint, from, to time.Time) ([]repository.LeaderboardRow, error) {
	if s.leaderboardFn != nil {
		return s.leaderboardFn(ctx, churchID, branchID, from, to)
	}
	return nil, nil
}

type approvalLogRepoStub struct {
	appendFn func(ctx context.Context, log *models.ApprovalLog) error
	listFn   func(ctx context.Context, filter repository.ApprovalLogFilter) ([]models.ApprovalLog, error)
}

func (s *approvalLogRepoStub) Append(ctx context.Context, log *models.ApprovalLog) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, log)
	}
	return nil
}

func (s *approvalLogRepoStub) List(ctx context.Context, filter repository.ApprovalLogFilter) ([]models.ApprovalLog, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func uintPtr(v uint) *uint { return &v }

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeForbidden, appErr.Code)
}

func newApprovalServiceForTest(
	requests *accessRequestRepoStub,
	memberships *membershipRepoStub,
	users *userRepoStub,
	churches *churchRepoStub,
	logs *approvalLogRepoStub,
) *ApprovalService {
	return NewApprovalService(requests, memberships, users, churches, logs, time.Second)
}
