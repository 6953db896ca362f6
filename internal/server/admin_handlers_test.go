package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"harvestlog/internal/featureflags"
	"harvestlog/internal/models"

	"github.com/gofiber/fiber/v2"
)

func TestEvangelistApprovalToggle(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	church := createHandlerTestChurch(t, db, "mount-olive")
	evangelist := seedEvangelist(t, db, "toggle@example.com", church.ID, nil)
	pastor := createHandlerTestUser(t, db, "togglepastor@example.com")
	grantRole(t, db, pastor.ID, church.ID, models.RolePastorAdmin, nil)

	app := newLocalsApp(pastor.ID)
	app.Post("/admin/evangelists/:id/approve", s.ApproveEvangelist)
	app.Post("/admin/evangelists/:id/unapprove", s.UnapproveEvangelist)
	app.Get("/admin/audit", s.GetAuditTrail)

	// Revoke, then re-grant.
	url := fmt.Sprintf("/admin/evangelists/%d/unapprove", evangelist.ID)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var user models.User
	if err := db.First(&user, evangelist.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.Approved {
		t.Fatal("unapprove must clear the approved flag")
	}

	url = fmt.Sprintf("/admin/evangelists/%d/approve", evangelist.ID)
	resp2, err := app.Test(httptest.NewRequest(http.MethodPost, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}
	var approveOut struct {
		User    models.UserResponse `json:"user"`
		Warning string              `json:"warning"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&approveOut); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !approveOut.User.Approved {
		t.Fatal("approve response must show the approved account")
	}
	if approveOut.Warning != "" {
		t.Fatalf("unexpected warning %q", approveOut.Warning)
	}

	// Both toggles left audit entries, newest first.
	resp3, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/audit", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp3.Body.Close() }()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp3.StatusCode)
	}
	var logs []models.ApprovalLog
	if err := json.NewDecoder(resp3.Body).Decode(&logs); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(logs))
	}
	if !logs[0].Approved || logs[1].Approved {
		t.Fatalf("expected newest-first [approve, unapprove], got %+v", logs)
	}
	for _, l := range logs {
		if l.EvangelistID != evangelist.ID || l.ActionBy != pastor.ID {
			t.Fatalf("audit entry has wrong parties: %+v", l)
		}
	}
}

func TestEvangelistApproval_StrangerAdminForbidden(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	church := createHandlerTestChurch(t, db, "first-love")
	otherChurch := createHandlerTestChurch(t, db, "second-love")
	evangelist := seedEvangelist(t, db, "mine@example.com", church.ID, nil)

	stranger := createHandlerTestUser(t, db, "stranger@example.com")
	grantRole(t, db, stranger.ID, otherChurch.ID, models.RolePastorAdmin, nil)

	app := newLocalsApp(stranger.ID)
	app.Post("/admin/evangelists/:id/unapprove", s.UnapproveEvangelist)

	url := fmt.Sprintf("/admin/evangelists/%d/unapprove", evangelist.ID)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for admin of another church, got %d", resp.StatusCode)
	}

	var user models.User
	_ = db.First(&user, evangelist.ID).Error
	if !user.Approved {
		t.Fatal("evangelist must remain approved")
	}
	var count int64
	db.Model(&models.ApprovalLog{}).Count(&count)
	if count != 0 {
		t.Fatal("denied action must not leave an audit entry")
	}
}

func TestSetEvangelistBranchEndpoint(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	church := createHandlerTestChurch(t, db, "riverside")
	north := &models.Branch{ChurchID: church.ID, Name: "North"}
	if err := db.Create(north).Error; err != nil {
		t.Fatalf("create branch: %v", err)
	}
	evangelist := seedEvangelist(t, db, "mover@example.com", church.ID, nil)
	pastor := createHandlerTestUser(t, db, "moverpastor@example.com")
	grantRole(t, db, pastor.ID, church.ID, models.RolePastorAdmin, nil)

	app := newLocalsApp(pastor.ID)
	app.Put("/admin/evangelists/:id/branch", s.SetEvangelistBranch)

	body, _ := json.Marshal(fiber.Map{"church_id": church.ID, "branch_id": north.ID})
	url := fmt.Sprintf("/admin/evangelists/%d/branch", evangelist.ID)
	req := httptest.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var membership models.Membership
	if err := db.Where("user_id = ? AND church_id = ? AND role = ?",
		evangelist.ID, church.ID, models.RoleEvangelist).First(&membership).Error; err != nil {
		t.Fatalf("reload membership: %v", err)
	}
	if membership.BranchID == nil || *membership.BranchID != north.ID {
		t.Fatal("membership branch not updated")
	}

	// church_id is required.
	noChurch, _ := json.Marshal(fiber.Map{"branch_id": north.ID})
	req2 := httptest.NewRequest(http.MethodPut, url, bytes.NewReader(noChurch))
	req2.Header.Set("Content-Type", "application/json")
	resp2, err := app.Test(req2)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without church_id, got %d", resp2.StatusCode)
	}
}

func TestGetAuditTrail_ScopedToAdminChurches(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	churchA := createHandlerTestChurch(t, db, "bethel")
	churchB := createHandlerTestChurch(t, db, "shiloh")
	evangelistA := seedEvangelist(t, db, "ours@example.com", churchA.ID, nil)
	evangelistB := seedEvangelist(t, db, "theirs@example.com", churchB.ID, nil)
	pastorA := createHandlerTestUser(t, db, "bethelpastor@example.com")
	pastorB := createHandlerTestUser(t, db, "shilohpastor@example.com")
	grantRole(t, db, pastorA.ID, churchA.ID, models.RolePastorAdmin, nil)
	grantRole(t, db, pastorB.ID, churchB.ID, models.RolePastorAdmin, nil)

	at := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	for _, entry := range []*models.ApprovalLog{
		{EvangelistID: evangelistA.ID, Approved: true, ActionBy: pastorA.ID, ActionAt: at},
		{EvangelistID: evangelistB.ID, Approved: false, ActionBy: pastorB.ID, ActionAt: at},
	} {
		if err := db.Create(entry).Error; err != nil {
			t.Fatalf("create audit entry: %v", err)
		}
	}

	app := newLocalsApp(pastorA.ID)
	app.Get("/admin/audit", s.GetAuditTrail)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/audit", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var logs []models.ApprovalLog
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected only this church's entry, got %d", len(logs))
	}
	if logs[0].EvangelistID != evangelistA.ID {
		t.Fatalf("audit trail leaked another church's entry: %+v", logs[0])
	}
}

func TestRemoveEvangelistMembership(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	church := createHandlerTestChurch(t, db, "emmanuel")
	evangelist := seedEvangelist(t, db, "departing@example.com", church.ID, nil)
	pastor := createHandlerTestUser(t, db, "emmanuelpastor@example.com")
	grantRole(t, db, pastor.ID, church.ID, models.RolePastorAdmin, nil)

	app := newLocalsApp(pastor.ID)
	app.Delete("/admin/evangelists/:id/membership", s.RemoveEvangelist)
	app.Get("/churches/:id/evangelists", s.GetEvangelists)

	// church_id is required.
	url := fmt.Sprintf("/admin/evangelists/%d/membership", evangelist.ID)
	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without church_id, got %d", resp.StatusCode)
	}

	url = fmt.Sprintf("/admin/evangelists/%d/membership?church_id=%d", evangelist.ID, church.ID)
	resp2, err := app.Test(httptest.NewRequest(http.MethodDelete, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}

	var membership models.Membership
	if err := db.Where("user_id = ? AND church_id = ?", evangelist.ID, church.ID).
		First(&membership).Error; err != nil {
		t.Fatalf("membership row must survive removal: %v", err)
	}
	if membership.Status != models.MembershipDisabled {
		t.Fatalf("expected disabled membership, got %s", membership.Status)
	}

	rosterURL := fmt.Sprintf("/churches/%d/evangelists", church.ID)
	resp3, err := app.Test(httptest.NewRequest(http.MethodGet, rosterURL, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp3.Body.Close() }()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp3.StatusCode)
	}
	var roster []models.Membership
	if err := json.NewDecoder(resp3.Body).Decode(&roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(roster) != 0 {
		t.Fatalf("removed evangelist must not appear on the roster, got %d", len(roster))
	}
}

func TestRemoveEvangelist_StrangerAdminForbidden(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	church := createHandlerTestChurch(t, db, "antioch")
	otherChurch := createHandlerTestChurch(t, db, "berea")
	evangelist := seedEvangelist(t, db, "settled@example.com", church.ID, nil)
	stranger := createHandlerTestUser(t, db, "bereapastor@example.com")
	grantRole(t, db, stranger.ID, otherChurch.ID, models.RolePastorAdmin, nil)

	app := newLocalsApp(stranger.ID)
	app.Delete("/admin/evangelists/:id/membership", s.RemoveEvangelist)

	url := fmt.Sprintf("/admin/evangelists/%d/membership?church_id=%d", evangelist.ID, church.ID)
	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for admin of another church, got %d", resp.StatusCode)
	}

	var membership models.Membership
	_ = db.Where("user_id = ? AND church_id = ?", evangelist.ID, church.ID).
		First(&membership).Error
	if membership.Status != models.MembershipActive {
		t.Fatal("membership must stay active after a denied removal")
	}
}

func TestExportAuditTrail_CSV(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	church := createHandlerTestChurch(t, db, "trinity")
	evangelist := seedEvangelist(t, db, "audited@example.com", church.ID, nil)
	pastor := createHandlerTestUser(t, db, "auditpastor@example.com")
	grantRole(t, db, pastor.ID, church.ID, models.RolePastorAdmin, nil)

	entry := &models.ApprovalLog{
		EvangelistID: evangelist.ID,
		Approved:     true,
		ActionBy:     pastor.ID,
		ActionAt:     time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("create audit entry: %v", err)
	}

	app := newLocalsApp(pastor.ID)
	app.Get("/admin/audit/export", s.ExportAuditTrail)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/audit/export", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "approval_audit.csv") {
		t.Fatalf("unexpected content disposition %q", cd)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "APPROVED") {
		t.Fatalf("row missing action: %q", lines[1])
	}
}

func TestExportAuditTrail_FlagDisabled(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	s.featureFlags = featureflags.NewManager("csv_export=off")

	church := createHandlerTestChurch(t, db, "gated")
	pastor := createHandlerTestUser(t, db, "gatedpastor@example.com")
	grantRole(t, db, pastor.ID, church.ID, models.RolePastorAdmin, nil)

	app := newLocalsApp(pastor.ID)
	app.Get("/admin/audit/export", s.ExportAuditTrail)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/audit/export", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 when csv_export is off, got %d", resp.StatusCode)
	}
}
