package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionProcessCreate     = "assessment.process.create"
	ActionProcessTransition = "assessment.process.transition"

	EntityProcess = "assessment_process"
)

type Event struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

// Entry is a stored audit event.
type Entry struct {
	ID         int64           `json:"id"`
	ActorID    string          `json:"actorUserId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, evt Event) error {
	beforeJSON, err := marshalOptional(evt.Before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalOptional(evt.After)
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, beforeJSON, afterJSON, evt.RequestID, evt.IP)
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := filter.where()
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM audit_events"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns events newest first. Before/after payloads are only loaded
// when includeDetails is set.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Entry, error) {
	where, args := filter.where()
	columns := "id, actor_user_id, action, entity_type, entity_id, NULL::jsonb, NULL::jsonb, request_id, ip, created_at"
	if includeDetails {
		columns = "id, actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip, created_at"
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT %s FROM audit_events%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		columns, where, len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var before, after []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType, &entry.EntityID, &before, &after, &entry.RequestID, &entry.IP, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Before = before
		entry.After = after
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (f Filter) where() (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("action", f.Action)
	add("entity_type", f.EntityType)
	add("entity_id", f.EntityID)
	add("actor_user_id", f.ActorUser)
	return where, args
}

func marshalOptional(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}
