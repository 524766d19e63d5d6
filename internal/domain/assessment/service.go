package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"assessments/internal/domain/auth"
)

const DefaultListLimit = 25

// Service is the only entry point that mutates assessment processes.
type Service struct {
	store  StoreAPI
	policy Policy
	// Now is the clock used for history timestamps.
	Now func() time.Time
}

func NewService(store StoreAPI, policy Policy) *Service {
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Service{store: store, policy: policy, Now: time.Now}
}

// Transition advances a process by one stage on behalf of actor. current is
// the status the caller last observed; a mismatch with the stored status is
// reported as ErrStaleState and the caller is expected to refresh and retry.
func (s *Service) Transition(ctx context.Context, processID string, current, requested Status, actor Actor) (TransitionResult, error) {
	if !current.IsValid() || !requested.IsValid() {
		return TransitionResult{}, ErrInvalidTransition
	}

	snapshot, err := s.store.ReadProcessStatus(ctx, processID)
	if err != nil {
		return TransitionResult{}, storeError("read process status", err)
	}
	if snapshot.Status != current {
		return TransitionResult{}, ErrStaleState
	}
	if !current.CanTransitionTo(requested) {
		return TransitionResult{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, requested)
	}
	if actor.ID == "" || !s.policy.Allow(current, requested, actor.Role) {
		return TransitionResult{}, ErrUnauthorized
	}

	entry := HistoryEntry{
		Status:    requested,
		ChangedAt: s.timestampAfter(snapshot.LastChangedAt),
		ChangedBy: actor.ref(),
	}

	err = s.store.WithTx(ctx, func(tx TxStore) error {
		updated, err := tx.ConditionalUpdateStatus(ctx, processID, current, requested)
		if err != nil {
			return storeError("update status", err)
		}
		if !updated {
			return ErrStaleState
		}
		if err := tx.AppendHistory(ctx, processID, entry); err != nil {
			return storeError("append history", err)
		}
		return nil
	})
	if err != nil {
		return TransitionResult{}, storeError("transition", err)
	}

	return TransitionResult{
		ProcessID:      processID,
		PreviousStatus: current,
		Status:         requested,
		Entry:          entry,
	}, nil
}

// Create stores a new process in in_definition together with its first
// history entry.
func (s *Service) Create(ctx context.Context, name string, startDate, endDate time.Time, actor Actor) (Process, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Process{}, fmt.Errorf("%w: name required", ErrInvalidProcess)
	}
	if startDate.IsZero() || endDate.IsZero() {
		return Process{}, fmt.Errorf("%w: start and end dates required", ErrInvalidProcess)
	}
	if endDate.Before(startDate) {
		return Process{}, fmt.Errorf("%w: end date before start date", ErrInvalidProcess)
	}
	if actor.ID == "" || !auth.RoleHasPermission(actor.Role, auth.PermProcessCreate) {
		return Process{}, ErrUnauthorized
	}

	now := s.Now().UTC().Truncate(time.Microsecond)
	process := Process{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    StatusInDefinition,
		Active:    StatusInDefinition.Active(),
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry := HistoryEntry{Status: StatusInDefinition, ChangedAt: now, ChangedBy: actor.ref()}

	err := s.store.WithTx(ctx, func(tx TxStore) error {
		if err := tx.CreateProcess(ctx, process); err != nil {
			return storeError("create process", err)
		}
		if err := tx.AppendHistory(ctx, process.ID, entry); err != nil {
			return storeError("append history", err)
		}
		return nil
	})
	if err != nil {
		return Process{}, storeError("create", err)
	}
	return process, nil
}

func (s *Service) Get(ctx context.Context, processID string) (Process, error) {
	process, err := s.store.GetProcess(ctx, processID)
	if err != nil {
		return Process{}, storeError("get process", err)
	}
	return process, nil
}

func (s *Service) History(ctx context.Context, processID string) ([]HistoryEntry, error) {
	if _, err := s.store.ReadProcessStatus(ctx, processID); err != nil {
		return nil, storeError("read process status", err)
	}
	entries, err := s.store.ListHistory(ctx, processID)
	if err != nil {
		return nil, storeError("list history", err)
	}
	return entries, nil
}

// List pages through processes newest first. A non-positive limit means
// DefaultListLimit.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) (ListResult, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return ListResult{}, fmt.Errorf("%w: unknown status filter %q", ErrInvalidProcess, filter.Status)
	}
	if offset < 0 {
		return ListResult{}, fmt.Errorf("%w: negative offset", ErrInvalidProcess)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	items, total, err := s.store.ListProcesses(ctx, filter, limit, offset)
	if err != nil {
		return ListResult{}, storeError("list processes", err)
	}
	if items == nil {
		items = []Process{}
	}
	return ListResult{Items: items, Total: total}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// timestampAfter keeps changedAt non-decreasing when the clock steps back.
// Timestamps are kept at the microsecond precision Postgres stores.
func (s *Service) timestampAfter(last time.Time) time.Time {
	now := s.Now().UTC().Truncate(time.Microsecond)
	if now.Before(last) {
		return last
	}
	return now
}

// storeError passes domain errors through and marks anything else as a
// persistence failure.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrStaleState),
		errors.Is(err, ErrPersistence),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidProcess):
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
