package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"harvestlog/internal/models"

	"github.com/gofiber/fiber/v2"
)

func TestChurchDirectory(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	createHandlerTestChurch(t, db, "alpha")
	createHandlerTestChurch(t, db, "omega")

	app := fiber.New()
	app.Get("/churches", s.GetChurches)
	app.Get("/churches/:slug", s.GetChurchBySlug)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/churches", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var churches []models.Church
	if err := json.NewDecoder(resp.Body).Decode(&churches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(churches) != 2 {
		t.Fatalf("expected 2 churches, got %d", len(churches))
	}

	resp2, err := app.Test(httptest.NewRequest(http.MethodGet, "/churches/alpha", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}
	var church models.Church
	if err := json.NewDecoder(resp2.Body).Decode(&church); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if church.Slug != "alpha" {
		t.Fatalf("wrong church %q", church.Slug)
	}

	resp3, err := app.Test(httptest.NewRequest(http.MethodGet, "/churches/no-such", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp3.StatusCode)
	}
}

func TestCreateChurchEndpoint(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)

	admin := createHandlerTestUser(t, db, "platform@example.com")
	if err := db.Create(&models.PlatformAdmin{UserID: admin.ID}).Error; err != nil {
		t.Fatalf("create platform admin: %v", err)
	}
	regular := createHandlerTestUser(t, db, "regular@example.com")

	adminApp := newLocalsApp(admin.ID)
	adminApp.Post("/churches", s.CreateChurch)
	regularApp := newLocalsApp(regular.ID)
	regularApp.Post("/churches", s.CreateChurch)

	body, _ := json.Marshal(fiber.Map{"name": "Grace Chapel East"})

	// Plain accounts cannot register churches.
	req := httptest.NewRequest(http.MethodPost, "/churches", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := regularApp.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/churches", bytes.NewReader(body))
	req2.Header.Set("Content-Type", "application/json")
	resp2, err := adminApp.Test(req2)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp2.StatusCode)
	}
	var created models.Church
	if err := json.NewDecoder(resp2.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Slug != "grace-chapel-east" {
		t.Fatalf("expected generated slug, got %q", created.Slug)
	}
}

func TestBranchEndpoints(t *testing.T) {
	t.Parallel()

	s, db := newHandlerTestServer(t)
	church := createHandlerTestChurch(t, db, "lighthouse")
	pastor := createHandlerTestUser(t, db, "branchpastor@example.com")
	grantRole(t, db, pastor.ID, church.ID, models.RolePastorAdmin, nil)

	app := newLocalsApp(pastor.ID)
	app.Post("/churches/:id/branches", s.CreateBranch)
	app.Get("/churches/:id/branches", s.GetBranches)
	app.Get("/churches/:id/evangelists", s.GetEvangelists)

	body, _ := json.Marshal(fiber.Map{"name": "Airport Campus"})
	url := fmt.Sprintf("/churches/%d/branches", church.ID)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp2, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var branches []models.Branch
	if err := json.NewDecoder(resp2.Body).Decode(&branches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(branches) != 1 || branches[0].Name != "Airport Campus" {
		t.Fatalf("unexpected branches %+v", branches)
	}

	// Evangelist roster, scoped to the pastor's church.
	seedEvangelist(t, db, "roster@example.com", church.ID, nil)
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
	if len(roster) != 1 || roster[0].Role != models.RoleEvangelist {
		t.Fatalf("unexpected roster %+v", roster)
	}
}
