package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evcraddock/bukkaku/internal/db"
	"github.com/evcraddock/bukkaku/internal/flyer"
	"github.com/evcraddock/bukkaku/internal/platform"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/query"
	"github.com/evcraddock/bukkaku/internal/verify"
)

const twoPropertyFlyer = `物件番号: A-101
所在地: 東京都渋谷区神南1-1-1
賃料: 15万円
間取り: 1K
物件番号: A-102
所在地: 東京都目黒区中目黒3-2-1
賃料: 120,000円
間取り: 1LDK
`

// stubAdapter reports every property as listed, except the IDs in missing.
type stubAdapter struct {
	missing map[string]bool
}

func (stubAdapter) Name() string { return "stub" }

func (a stubAdapter) Check(ctx context.Context, q query.SearchQuery, p *property.Property) platform.Result {
	if ctx.Err() != nil {
		return platform.Failure("stub", platform.NetworkTimeout, ctx.Err().Error())
	}
	if a.missing[p.ID] {
		return platform.Result{SiteName: "stub", AvailabilityStatus: platform.Unknown, Notes: "no results"}
	}
	return platform.Result{SiteName: "stub", Found: true, Confidence: 0.95, AvailabilityStatus: platform.Vacant}
}

func testServer(t *testing.T) (*Server, *property.Repository) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	repo := property.NewRepository(d)
	orch := verify.New([]platform.Adapter{stubAdapter{missing: map[string]bool{"A-102": true}}}, verify.Options{})
	srv := NewServer(":0", Deps{
		Repo:         repo,
		Service:      property.NewService(repo, flyer.NewExtractor(0)),
		Orchestrator: orch,
	})
	return srv, repo
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestExtract(t *testing.T) {
	srv, repo := testServer(t)

	rec := do(t, srv, uploadRequest(t, "/api/v1/extract", "list.txt", []byte(twoPropertyFlyer)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var result property.ExtractResult
	decode(t, rec, &result)
	if len(result.Properties) != 2 {
		t.Errorf("properties = %d, want 2", len(result.Properties))
	}

	if _, err := repo.GetByID("A-101"); err != nil {
		t.Errorf("expected A-101 to be stored: %v", err)
	}
}

func TestExtractDryRun(t *testing.T) {
	srv, repo := testServer(t)

	rec := do(t, srv, uploadRequest(t, "/api/v1/extract?dry_run=true", "list.txt", []byte(twoPropertyFlyer)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	all, err := repo.List(property.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("dry run stored %d properties", len(all))
	}
}

func TestExtractErrors(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"not multipart", httptest.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewBufferString("{}")), http.StatusBadRequest},
		{"unreadable", uploadRequest(t, "/api/v1/extract", "blank.pdf", []byte("%PDF-1.4 broken")), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestVerifyUpload(t *testing.T) {
	srv, repo := testServer(t)

	rec := do(t, srv, uploadRequest(t, "/api/v1/verify", "list.txt", []byte(twoPropertyFlyer)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var reports []verify.Report
	decode(t, rec, &reports)
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	if !reports[0].OverallFound || reports[1].OverallFound {
		t.Errorf("found = %v, %v; want true, false", reports[0].OverallFound, reports[1].OverallFound)
	}

	stored, err := repo.GetByID("A-102")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.FollowUpStatus != property.FollowUpPending {
		t.Errorf("follow-up = %q, want pending", stored.FollowUpStatus)
	}
}

func TestVerifyByID(t *testing.T) {
	srv, repo := testServer(t)

	if _, err := repo.Upsert(&property.Property{ID: "A-101", Address: "東京都渋谷区神南1-1-1", Layout: "1K"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"known id", `{"ids": ["A-101"]}`, http.StatusOK},
		{"unknown id", `{"ids": ["nope"]}`, http.StatusNotFound},
		{"no ids", `{"ids": []}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := do(t, srv, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestPropertiesAndFollowUps(t *testing.T) {
	srv, repo := testServer(t)

	for _, id := range []string{"A-101", "A-102"} {
		if _, err := repo.Upsert(&property.Property{ID: id, Address: "東京都渋谷区", Layout: "1K"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if _, err := repo.UpdateFollowUpStatus("A-102", "", property.FollowUpPending); err != nil {
		t.Fatalf("update: %v", err)
	}

	var all []property.Record
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil))
	decode(t, rec, &all)
	if len(all) != 2 {
		t.Errorf("properties = %d, want 2", len(all))
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/properties?follow_up=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus filter status = %d, want 400", rec.Code)
	}

	var pending []property.Record
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/followups", nil))
	decode(t, rec, &pending)
	if len(pending) != 1 || pending[0].ID != "A-102" {
		t.Errorf("pending = %+v, want [A-102]", pending)
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/v1/followups/A-102/called", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("called status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var called property.Record
	decode(t, rec, &called)
	if called.FollowUpStatus != property.FollowUpCalled {
		t.Errorf("follow-up = %q, want called", called.FollowUpStatus)
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/followups", nil))
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("followups after call = %q, want empty list", body)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/properties/missing"},
		{http.MethodPost, "/api/v1/followups/missing/called"},
		{http.MethodDelete, "/api/v1/properties/missing"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, srv, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	srv := NewServer(":0", Deps{AllowedOrigins: []string{"http://localhost:5173"}})

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := do(t, srv, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("allow origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSameIDFromTwoFlyers(t *testing.T) {
	srv, repo := testServer(t)

	for _, src := range []string{"flyer_shibuya.txt", "flyer_meguro.txt"} {
		if _, err := repo.Upsert(&property.Property{ID: "fly_001", Address: "東京都", Layout: "1K", SourceFile: src}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"get ambiguous", http.MethodGet, "/api/v1/properties/fly_001", http.StatusConflict},
		{"get by source", http.MethodGet, "/api/v1/properties/fly_001?source=flyer_meguro.txt", http.StatusOK},
		{"get unknown source", http.MethodGet, "/api/v1/properties/fly_001?source=other.txt", http.StatusNotFound},
		{"called ambiguous", http.MethodPost, "/api/v1/followups/fly_001/called", http.StatusConflict},
		{"called by source", http.MethodPost, "/api/v1/followups/fly_001/called?source=flyer_shibuya.txt", http.StatusOK},
		{"delete by source", http.MethodDelete, "/api/v1/properties/fly_001?source=flyer_meguro.txt", http.StatusOK},
		{"get after delete", http.MethodGet, "/api/v1/properties/fly_001", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	remaining, err := repo.GetByID("fly_001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if remaining.SourceFile != "flyer_shibuya.txt" || remaining.FollowUpStatus != property.FollowUpCalled {
		t.Errorf("remaining = %+v", remaining)
	}
}

func TestVerifyBodyTooLarge(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"ids": ["` + strings.Repeat("x", maxJSONBytes) + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestVerifyOutlivesClient(t *testing.T) {
	srv, repo := testServer(t)

	if _, err := repo.Upsert(&property.Property{ID: "A-101", Address: "東京都渋谷区神南1-1-1", Layout: "1K"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", strings.NewReader(`{"ids": ["A-101"]}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	stored, err := repo.GetByID("A-101")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.FollowUpStatus != property.FollowUpNone {
		t.Errorf("follow-up = %q, want none", stored.FollowUpStatus)
	}
}
