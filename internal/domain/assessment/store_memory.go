package assessment

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRecord struct {
	process Process
	history []HistoryEntry
}

func (r *memoryRecord) clone() *memoryRecord {
	out := &memoryRecord{process: r.process, history: make([]HistoryEntry, len(r.history))}
	copy(out.history, r.history)
	return out
}

// MemoryStore keeps processes in process memory. Transactions hold the write
// lock for their whole duration and stage writes until fn returns nil.
type MemoryStore struct {
	mu        sync.RWMutex
	processes map[string]*memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{processes: map[string]*memoryRecord{}}
}

func (s *MemoryStore) ReadProcessStatus(_ context.Context, processID string) (StatusSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.processes[processID]
	if !ok {
		return StatusSnapshot{}, ErrNotFound
	}
	return snapshotOf(record), nil
}

func (s *MemoryStore) GetProcess(_ context.Context, processID string) (Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.processes[processID]
	if !ok {
		return Process{}, ErrNotFound
	}
	return record.process, nil
}

func (s *MemoryStore) ListProcesses(_ context.Context, filter ListFilter, limit, offset int) ([]Process, int, error) {
	s.mu.RLock()
	var matched []Process
	for _, record := range s.processes {
		if filter.Status != "" && record.process.Status != filter.Status {
			continue
		}
		if filter.Active != nil && record.process.Active != *filter.Active {
			continue
		}
		matched = append(matched, record.process)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Process{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) ListHistory(_ context.Context, processID string) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.processes[processID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]HistoryEntry, len(record.history))
	copy(out, record.history)
	return out, nil
}

func (s *MemoryStore) WithTx(_ context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, staged: map[string]*memoryRecord{}}
	if err := fn(tx); err != nil {
		return err
	}
	for id, record := range tx.staged {
		s.processes[id] = record
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	staged map[string]*memoryRecord
}

func (tx *memoryTx) record(processID string) (*memoryRecord, bool) {
	if record, ok := tx.staged[processID]; ok {
		return record, true
	}
	record, ok := tx.store.processes[processID]
	if !ok {
		return nil, false
	}
	staged := record.clone()
	tx.staged[processID] = staged
	return staged, true
}

func (tx *memoryTx) CreateProcess(_ context.Context, process Process) error {
	if _, ok := tx.record(process.ID); ok {
		return ErrInvalidProcess
	}
	tx.staged[process.ID] = &memoryRecord{process: process}
	return nil
}

func (tx *memoryTx) ConditionalUpdateStatus(_ context.Context, processID string, expected, next Status) (bool, error) {
	record, ok := tx.record(processID)
	if !ok || record.process.Status != expected {
		return false, nil
	}
	record.process.Status = next
	record.process.Active = next.Active()
	record.process.UpdatedAt = tx.store.clockAfter(record)
	return true, nil
}

func (tx *memoryTx) AppendHistory(_ context.Context, processID string, entry HistoryEntry) error {
	record, ok := tx.record(processID)
	if !ok {
		return ErrNotFound
	}
	record.history = append(record.history, entry)
	return nil
}

func (s *MemoryStore) clockAfter(record *memoryRecord) time.Time {
	now := time.Now().UTC()
	if now.Before(record.process.UpdatedAt) {
		return record.process.UpdatedAt
	}
	return now
}

func snapshotOf(record *memoryRecord) StatusSnapshot {
	snapshot := StatusSnapshot{Status: record.process.Status}
	if n := len(record.history); n > 0 {
		snapshot.LastChangedAt = record.history[n-1].ChangedAt
	}
	return snapshot
}
