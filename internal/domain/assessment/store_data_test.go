package assessment

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"assessments/internal/platform/config"
	"assessments/internal/platform/db"
)

func newPostgresService(t *testing.T) *Service {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := db.Migrate(dbURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := db.Connect(context.Background(), config.Config{DatabaseURL: dbURL, DBMaxConns: 8})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewService(NewStore(pool), nil)
}

func TestPostgresLifecycle(t *testing.T) {
	svc := newPostgresService(t)
	ctx := context.Background()
	process := createProcess(t, svc)

	advance(t, svc, process.ID, StatusInDefinition, StatusInSelfAssessment, manager)
	advance(t, svc, process.ID, StatusInSelfAssessment, StatusAwaitingManagerAssessment, employee)
	advance(t, svc, process.ID, StatusAwaitingManagerAssessment, StatusCompleted, manager)

	history := assertHistoryMatchesStatus(t, svc, process.ID)
	if len(history) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(history))
	}
	if history[2].ChangedBy.ID != employee.ID || history[2].ChangedBy.Name != employee.Name {
		t.Fatalf("unexpected actor snapshot: %+v", history[2].ChangedBy)
	}

	got, err := svc.Get(ctx, process.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("completed process should be inactive")
	}

	_, err = svc.Transition(ctx, process.ID, StatusCompleted, StatusInDefinition, manager)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresConcurrentTransitions(t *testing.T) {
	svc := newPostgresService(t)
	process := createProcess(t, svc)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		stale   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transition(context.Background(), process.ID, StatusInDefinition, StatusInSelfAssessment, manager)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, ErrStaleState):
				stale++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if applied != 1 || stale != workers-1 {
		t.Fatalf("expected 1 applied and %d stale, got %d and %d", workers-1, applied, stale)
	}
	history := assertHistoryMatchesStatus(t, svc, process.ID)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
}

func TestPostgresListFilters(t *testing.T) {
	svc := newPostgresService(t)
	ctx := context.Background()
	process := createProcess(t, svc)
	advance(t, svc, process.ID, StatusInDefinition, StatusInSelfAssessment, manager)

	result, err := svc.List(ctx, ListFilter{Status: StatusInSelfAssessment}, 500, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, item := range result.Items {
		if item.Status != StatusInSelfAssessment {
			t.Fatalf("filter leaked status %s", item.Status)
		}
		if item.ID == process.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected created process in filtered list")
	}
}
