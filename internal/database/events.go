package database

import (
	"context"
	"encoding/json"
	"fmt"

	"fatigue-detector/internal/models"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// Querier is the subset of pgxpool.Pool used by repositories.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type EventRepository struct {
	db Querier
}

func NewEventRepository(db Querier) *EventRepository {
	return &EventRepository{db: db}
}

const insertEvent = `
	INSERT INTO detection_events
		(session_id, driver_id, vehicle_id, event_type, severity, confidence, ear, mar, head_angle, location, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id`

func (r *EventRepository) Insert(ctx context.Context, e models.Event) (int64, error) {
	location, err := marshalNullable(e.Location)
	if err != nil {
		return 0, fmt.Errorf("encode location: %w", err)
	}
	var metadata []byte
	if len(e.Metadata) > 0 {
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return 0, fmt.Errorf("encode metadata: %w", err)
		}
	}

	var id int64
	err = r.db.QueryRow(ctx, insertEvent,
		e.SessionID, e.DriverID, e.VehicleID, e.EventType, e.Severity, e.Confidence,
		e.EAR, e.MAR, e.HeadAngle, location, metadata, e.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

const selectEventsBySession = `
	SELECT id, session_id, driver_id, vehicle_id, event_type, severity, confidence, ear, mar, head_angle, location, metadata, created_at
	FROM detection_events
	WHERE session_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

func (r *EventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, selectEventsBySession, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var (
			e                  models.Event
			location, metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.DriverID, &e.VehicleID, &e.EventType, &e.Severity,
			&e.Confidence, &e.EAR, &e.MAR, &e.HeadAngle, &location, &metadata, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(location) > 0 {
			e.Location = new(models.Location)
			if err := json.Unmarshal(location, e.Location); err != nil {
				return nil, fmt.Errorf("decode location: %w", err)
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const countBySeverity = `
	SELECT severity, COUNT(*)
	FROM detection_events
	WHERE session_id = $1
	GROUP BY severity`

func (r *EventRepository) CountBySeverity(ctx context.Context, sessionID string) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, countBySeverity, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var severity string
		var n int64
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[severity] = n
	}
	return counts, rows.Err()
}

func marshalNullable(v *models.Location) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
