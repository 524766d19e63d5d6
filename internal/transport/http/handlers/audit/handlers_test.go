package audithandler

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"assessments/internal/domain/audit"
	"assessments/internal/domain/auth"
	"assessments/internal/transport/http/middleware"
)

type fakeEvents struct {
	entries    []audit.Entry
	lastFilter audit.Filter
	lastLimit  int
	err        error
}

func (f *fakeEvents) Count(_ context.Context, _ audit.Filter) (int, error) {
	return len(f.entries), nil
}

func (f *fakeEvents) List(_ context.Context, filter audit.Filter, _ bool, limit, _ int) ([]audit.Entry, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	return f.entries, f.err
}

func newRouter(store EventStore) http.Handler {
	r := chi.NewRouter()
	NewHandler(store, auth.StaticPermissions{}).RegisterRoutes(r)
	return r
}

func request(path, role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u-1", RoleName: role}))
	}
	return req
}

func TestListEvents(t *testing.T) {
	store := &fakeEvents{entries: []audit.Entry{{ID: 1, Action: audit.ActionProcessTransition, EntityType: audit.EntityProcess, EntityID: "p-1"}}}
	router := newRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, request("/audit/events?entityType=assessment_process&entityId=p-1&limit=10", auth.RoleManager))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Total-Count") != "1" {
		t.Fatalf("expected total header, got %q", rec.Header().Get("X-Total-Count"))
	}
	if store.lastFilter.EntityID != "p-1" || store.lastFilter.EntityType != audit.EntityProcess || store.lastLimit != 10 {
		t.Fatalf("unexpected filter: %+v limit %d", store.lastFilter, store.lastLimit)
	}
}

func TestListEventsForbiddenForEmployee(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeEvents{}).ServeHTTP(rec, request("/audit/events", auth.RoleEmployee))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestListEventsStoreFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeEvents{err: errors.New("down")}).ServeHTTP(rec, request("/audit/events", auth.RoleManager))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestExportEvents(t *testing.T) {
	created := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	store := &fakeEvents{entries: []audit.Entry{
		{ID: 7, ActorID: "m-1", Action: audit.ActionProcessCreate, EntityType: audit.EntityProcess, EntityID: "p-1", CreatedAt: created},
	}}
	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, request("/audit/events/export", auth.RoleManager))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "7" || rows[1][7] != "2026-05-04T10:00:00Z" {
		t.Fatalf("unexpected csv rows: %v", rows)
	}
	if store.lastLimit != exportLimit {
		t.Fatalf("expected export limit %d, got %d", exportLimit, store.lastLimit)
	}
}
