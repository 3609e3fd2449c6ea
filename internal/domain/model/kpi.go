package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// KPIEvent is one post-drill metric report linked to a job. The numeric
// fields are extracted from free-form webhook payloads; Raw preserves the
// original body for later analysis.
type KPIEvent struct {
	ID          string          `json:"id"                     db:"id"`
	JobID       string          `json:"job_id"                 db:"job_id"`
	Attendance  *float64        `json:"attendance,omitempty"   db:"attendance"`
	EvacSeconds *float64        `json:"evac_seconds,omitempty" db:"evac_seconds"`
	QuizScore   *float64        `json:"quiz_score,omitempty"   db:"quiz_score"`
	Raw         json.RawMessage `json:"raw,omitempty"          db:"raw"`
	ReceivedAt  time.Time       `json:"received_at"            db:"received_at"`
}

// Validate checks the event references a job and carries at least one metric.
func (e *KPIEvent) Validate() error {
	if e.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if e.Attendance == nil && e.EvacSeconds == nil && e.QuizScore == nil {
		return fmt.Errorf("at least one metric is required")
	}
	return nil
}
