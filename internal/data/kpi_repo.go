package data

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
)

// KPIRepo provides database operations for post-drill metric events.
type KPIRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewKPIRepo creates a new KPIRepo instance.
func NewKPIRepo(db *sql.DB, tp TimeProvider) *KPIRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &KPIRepo{DB: db, timeProvider: tp}
}

// Insert stores one KPI event. An unknown job_id maps to a Validation
// error through the foreign key.
func (r *KPIRepo) Insert(ctx context.Context, event *model.KPIEvent) (*model.KPIEvent, error) {
	if event == nil {
		return nil, apperrors.Validation("kpi event is required")
	}
	if err := event.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid kpi event")
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	raw := event.Raw
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	now := r.timeProvider.Now().UTC()
	stored := &model.KPIEvent{}
	var rawOut []byte
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO kpi_events (id, job_id, attendance, evac_seconds, quiz_score, raw, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, job_id, attendance, evac_seconds, quiz_score, raw, received_at
	`, id, event.JobID, event.Attendance, event.EvacSeconds, event.QuizScore, []byte(raw), now).Scan(
		&stored.ID,
		&stored.JobID,
		&stored.Attendance,
		&stored.EvacSeconds,
		&stored.QuizScore,
		&rawOut,
		&stored.ReceivedAt,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	stored.Raw = cloneJSON(rawOut)
	return stored, nil
}

// ListByJob returns the KPI events recorded for a job, oldest first.
func (r *KPIRepo) ListByJob(ctx context.Context, jobID string) ([]*model.KPIEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, job_id, attendance, evac_seconds, quiz_score, raw, received_at
		FROM kpi_events
		WHERE job_id = $1
		ORDER BY received_at ASC
	`, jobID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()

	var events []*model.KPIEvent
	for rows.Next() {
		event := &model.KPIEvent{}
		var raw []byte
		if err := rows.Scan(
			&event.ID,
			&event.JobID,
			&event.Attendance,
			&event.EvacSeconds,
			&event.QuizScore,
			&raw,
			&event.ReceivedAt,
		); err != nil {
			return nil, apperrors.MapDBError(err)
		}
		event.Raw = cloneJSON(raw)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return events, nil
}
