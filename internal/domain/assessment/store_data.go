package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ReadProcessStatus(ctx context.Context, processID string) (StatusSnapshot, error) {
	var snapshot StatusSnapshot
	var lastChangedAt *time.Time
	err := s.DB.QueryRow(ctx, `
    SELECT p.status,
           (SELECT MAX(h.changed_at) FROM assessment_process_status_history h WHERE h.process_id = p.id)
    FROM assessment_processes p
    WHERE p.id = $1
  `, processID).Scan(&snapshot.Status, &lastChangedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusSnapshot{}, ErrNotFound
	}
	if err != nil {
		return StatusSnapshot{}, err
	}
	if lastChangedAt != nil {
		snapshot.LastChangedAt = lastChangedAt.UTC()
	}
	return snapshot, nil
}

func (s *Store) GetProcess(ctx context.Context, processID string) (Process, error) {
	var process Process
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, status, active, start_date, end_date, created_at, updated_at
    FROM assessment_processes
    WHERE id = $1
  `, processID).Scan(&process.ID, &process.Name, &process.Status, &process.Active, &process.StartDate, &process.EndDate, &process.CreatedAt, &process.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Process{}, ErrNotFound
	}
	if err != nil {
		return Process{}, err
	}
	return process, nil
}

func (s *Store) ListProcesses(ctx context.Context, filter ListFilter, limit, offset int) ([]Process, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where += fmt.Sprintf(" AND active = $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM assessment_processes"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT id, name, status, active, start_date, end_date, created_at, updated_at FROM assessment_processes" + where
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Process
	for rows.Next() {
		var process Process
		if err := rows.Scan(&process.ID, &process.Name, &process.Status, &process.Active, &process.StartDate, &process.EndDate, &process.CreatedAt, &process.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, process)
	}
	return out, total, rows.Err()
}

func (s *Store) ListHistory(ctx context.Context, processID string) ([]HistoryEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, changed_at, changed_by_id, changed_by_name
    FROM assessment_process_status_history
    WHERE process_id = $1
    ORDER BY changed_at ASC, id ASC
  `, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.Status, &entry.ChangedAt, &entry.ChangedBy.ID, &entry.ChangedBy.Name); err != nil {
			return nil, err
		}
		entry.ChangedAt = entry.ChangedAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) WithTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(pgTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) CreateProcess(ctx context.Context, process Process) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO assessment_processes (id, name, status, active, start_date, end_date, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, process.ID, process.Name, string(process.Status), process.Active, process.StartDate, process.EndDate, process.CreatedAt, process.UpdatedAt)
	return err
}

func (t pgTx) ConditionalUpdateStatus(ctx context.Context, processID string, expected, next Status) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
    UPDATE assessment_processes
    SET status = $1, active = $2, updated_at = GREATEST(now(), updated_at)
    WHERE id = $3 AND status = $4
  `, string(next), next.Active(), processID, string(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t pgTx) AppendHistory(ctx context.Context, processID string, entry HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO assessment_process_status_history (process_id, status, changed_at, changed_by_id, changed_by_name)
    VALUES ($1,$2,$3,$4,$5)
  `, processID, string(entry.Status), entry.ChangedAt, entry.ChangedBy.ID, entry.ChangedBy.Name)
	return err
}
