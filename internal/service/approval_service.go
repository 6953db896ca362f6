package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"harvestlog/internal/authz"
	"harvestlog/internal/models"
	"harvestlog/internal/observability"
	"harvestlog/internal/repository"
)

// DecisionResult reports the outcome of a request decision. AlreadyDecided is
// set when the call was an idempotent retry of the same decision. Warning
// carries a PARTIAL_SUCCESS error when the decision landed but the audit
// record could not be written.
type DecisionResult struct {
	Request        *models.AccessRequest
	AlreadyDecided bool
	Warning        *models.AppError
}

// ApprovalResult reports the outcome of an evangelist approval toggle.
// Warning carries a PARTIAL_SUCCESS error when the profile was updated but
// the audit record could not be written.
type ApprovalResult struct {
	User    *models.User
	Warning *models.AppError
}

// ApprovalService owns the access request workflow and evangelist approval
// toggles. All store calls run under a bounded deadline.
type ApprovalService struct {
	requests     repository.AccessRequestRepository
	memberships  repository.MembershipRepository
	users        repository.UserRepository
	churches     repository.ChurchRepository
	approvalLogs repository.ApprovalLogRepository
	timeout      time.Duration
	wflog        *observability.WorkflowLogger
}

func NewApprovalService(
	requests repository.AccessRequestRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	churches repository.ChurchRepository,
	approvalLogs repository.ApprovalLogRepository,
	timeout time.Duration,
) *ApprovalService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ApprovalService{
		requests:     requests,
		memberships:  memberships,
		users:        users,
		churches:     churches,
		approvalLogs: approvalLogs,
		timeout:      timeout,
		wflog:        observability.NewWorkflowLogger("access_request"),
	}
}

type CreateRequestInput struct {
	UserID   uint
	ChurchID uint
	BranchID *uint
	Note     string
}

// CreateRequest submits a pending access request. One pending request per
// (user, church) at a time.
func (s *ApprovalService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.AccessRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if in.ChurchID == 0 {
		return nil, models.NewValidationError("church_id is required")
	}
	church, err := s.churches.GetByID(ctx, in.ChurchID)
	if err != nil {
		return nil, err
	}
	if in.BranchID != nil {
		branch, err := s.churches.GetBranch(ctx, *in.BranchID)
		if err != nil {
			return nil, err
		}
		if branch.ChurchID != church.ID {
			return nil, models.NewValidationError("branch does not belong to the selected church")
		}
	}

	pending, err := s.requests.HasPending(ctx, in.UserID, in.ChurchID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.NewConflictError("a pending request already exists for this church")
	}

	note := strings.TrimSpace(in.Note)
	if len(note) > 500 {
		return nil, models.NewValidationError("note too long (max 500 characters)")
	}

	req := &models.AccessRequest{
		UserID:   in.UserID,
		ChurchID: in.ChurchID,
		BranchID: in.BranchID,
		Note:     note,
		Status:   models.RequestPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListPending returns pending requests the actor may decide. Platform admins
// see everything; pastor admins their churches; branch admins their branch.
func (s *ApprovalService) ListPending(ctx context.Context, actor *authz.AuthContext) ([]models.AccessRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if !actor.IsAnyAdmin() {
		return nil, models.NewForbiddenError("admin access required")
	}

	churchIDs := actor.AdminChurchIDs()

	// A branch admin with no pastor-level scope only sees their branch.
	var branchID *uint
	if !actor.PlatformAdmin {
		onlyBranch := true
		for _, sc := range actor.Scopes {
			if sc.Role >= authz.RolePastorAdmin {
				onlyBranch = false
				break
			}
		}
		if onlyBranch {
			for _, sc := range actor.Scopes {
				if sc.Role == authz.RoleBranchAdmin && sc.BranchID != nil {
					branchID = sc.BranchID
					break
				}
			}
		}
	}

	return s.requests.ListPending(ctx, churchIDs, branchID)
}

// ListForUser returns the user's own requests, newest first.
func (s *ApprovalService) ListForUser(ctx context.Context, userID uint) ([]models.AccessRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.requests.ListForUser(ctx, userID)
}

// DecideRequest approves or rejects a pending request on behalf of actor.
// Retrying an identical decision is a no-op success; a conflicting decision
// or a concurrent loser gets CONFLICT. On approval a non-nil assignBranchID
// places the evangelist into that branch instead of the one they asked for.
func (s *ApprovalService) DecideRequest(ctx context.Context, actor *authz.AuthContext, requestID uint, approve bool, assignBranchID *uint) (*DecisionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	transition := "reject"
	if approve {
		transition = "approve"
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !actor.CanDecideRequest(req.ChurchID, req.BranchID) {
		s.wflog.LogDenied(ctx, actor.UserID, requestID, transition, "insufficient role for church/branch")
		return nil, models.NewForbiddenError("you may not decide requests for this church or branch")
	}

	if approve && assignBranchID != nil {
		branch, err := s.churches.GetBranch(ctx, *assignBranchID)
		if err != nil {
			return nil, err
		}
		if branch.ChurchID != req.ChurchID {
			return nil, models.NewValidationError("assigned branch does not belong to the request's church")
		}
	}

	decided, err := s.requests.Decide(ctx, requestID, actor.UserID, approve, assignBranchID)
	if errors.Is(err, repository.ErrAlreadyDecided) {
		return &DecisionResult{Request: decided, AlreadyDecided: true}, nil
	}
	if err != nil {
		s.wflog.LogError(ctx, actor.UserID, requestID, err, transition)
		return nil, err
	}

	observability.RecordDecision(decided.Status)
	s.wflog.LogTransition(ctx, actor.UserID, requestID, transition)

	result := &DecisionResult{Request: decided}
	if approve {
		// The approval flag flip rode along in the transaction; audit it.
		if logErr := s.approvalLogs.Append(ctx, &models.ApprovalLog{
			EvangelistID: decided.UserID,
			Approved:     true,
			ActionBy:     actor.UserID,
		}); logErr != nil {
			observability.PartialSuccessTotal.Inc()
			s.wflog.LogError(ctx, actor.UserID, requestID, logErr, "approve audit append")
			result.Warning = models.NewPartialSuccessError("Request approved, but the audit record could not be written", logErr)
		}
	}

	return result, nil
}

// SetEvangelistApproval flips an evangelist's approved flag. Reversible. The
// profile update and the audit append are separate effects: if the audit
// write fails after the profile changed, the result carries a
// PARTIAL_SUCCESS warning instead of rolling back.
func (s *ApprovalService) SetEvangelistApproval(ctx context.Context, actor *authz.AuthContext, evangelistID uint, approved bool) (*ApprovalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	transition := "unapprove"
	if approved {
		transition = "approve"
	}

	if err := s.authorizeOverEvangelist(ctx, actor, evangelistID); err != nil {
		s.wflog.LogDenied(ctx, actor.UserID, evangelistID, transition, "not an admin over evangelist")
		return nil, err
	}

	if err := s.users.SetApproved(ctx, evangelistID, approved); err != nil {
		s.wflog.LogError(ctx, actor.UserID, evangelistID, err, transition)
		return nil, err
	}

	user, err := s.users.GetByID(ctx, evangelistID)
	if err != nil {
		user = &models.User{ID: evangelistID, Approved: approved}
	}

	observability.RecordApprovalToggle(approved)
	s.wflog.LogTransition(ctx, actor.UserID, evangelistID, transition)

	result := &ApprovalResult{User: user}
	if logErr := s.approvalLogs.Append(ctx, &models.ApprovalLog{
		EvangelistID: evangelistID,
		Approved:     approved,
		ActionBy:     actor.UserID,
	}); logErr != nil {
		observability.PartialSuccessTotal.Inc()
		s.wflog.LogError(ctx, actor.UserID, evangelistID, logErr, transition+" audit append")
		result.Warning = models.NewPartialSuccessError("Approval updated, but the audit record could not be written", logErr)
	}

	return result, nil
}

// SetEvangelistBranch reassigns an evangelist's branch within a church the
// actor administers.
func (s *ApprovalService) SetEvangelistBranch(ctx context.Context, actor *authz.AuthContext, evangelistID, churchID uint, branchID *uint) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if actor.EffectiveRole(churchID) < authz.RolePastorAdmin {
		return models.NewForbiddenError("pastor admin access required for this church")
	}

	if branchID != nil {
		branch, err := s.churches.GetBranch(ctx, *branchID)
		if err != nil {
			return err
		}
		if branch.ChurchID != churchID {
			return models.NewValidationError("branch does not belong to this church")
		}
	}

	return s.memberships.SetBranch(ctx, evangelistID, churchID, branchID)
}

// RemoveEvangelist disables an evangelist's membership in a church the actor
// administers at pastor level or above. The account and its soul history stay;
// the grant just stops resolving.
func (s *ApprovalService) RemoveEvangelist(ctx context.Context, actor *authz.AuthContext, evangelistID, churchID uint) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if actor.EffectiveRole(churchID) < authz.RolePastorAdmin {
		return models.NewForbiddenError("pastor admin access required for this church")
	}

	if err := s.memberships.Disable(ctx, evangelistID, churchID, models.RoleEvangelist); err != nil {
		return err
	}
	s.wflog.LogTransition(ctx, actor.UserID, evangelistID, "remove_membership")
	return nil
}

// authorizeOverEvangelist checks the actor administers at least one church
// the evangelist actively serves in.
func (s *ApprovalService) authorizeOverEvangelist(ctx context.Context, actor *authz.AuthContext, evangelistID uint) error {
	if actor.PlatformAdmin {
		return nil
	}

	memberships, err := s.memberships.ActiveForUser(ctx, evangelistID)
	if err != nil {
		return models.NewUnavailableError(err)
	}
	for _, m := range memberships {
		if m.Role != models.RoleEvangelist {
			continue
		}
		if actor.CanViewBranch(m.ChurchID, m.BranchID) {
			return nil
		}
	}
	return models.NewForbiddenError("you do not administer this evangelist")
}
