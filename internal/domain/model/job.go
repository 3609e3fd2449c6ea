// Package model defines the core data types used throughout the drill generation pipeline.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Stage identifies one step of the generation pipeline.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Stage string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// StagePlan produces the drill plan and acceptance checklist.
	StagePlan Stage = "plan"
	// StageScenario produces the timed scenario script and role assignments.
	StageScenario Stage = "scenario"
	// StageSafety reviews the scenario and emits safety findings.
	StageSafety Stage = "safety"
	// StageContent renders participant-facing content and media prompts.
	StageContent Stage = "content"

	// JobStatusQueued indicates a job is waiting for its first stage delivery.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates at least one stage has been claimed.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusDone indicates all stages completed successfully.
	JobStatusDone JobStatus = "done"
	// JobStatusFailed indicates a stage exhausted its attempts or hit a fatal error.
	JobStatusFailed JobStatus = "failed"
)

// PipelineOrder is the fixed execution order of the pipeline stages.
var PipelineOrder = []Stage{StagePlan, StageScenario, StageSafety, StageContent}

// UnmarshalText implements encoding.TextUnmarshaler for Stage to allow env parsing.
func (s *Stage) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	st := Stage(v)
	if st.Valid() {
		*s = st
		return nil
	}
	return fmt.Errorf("invalid Stage: %q", v)
}

// Valid returns true if the Stage is one of the pipeline stages.
func (s Stage) Valid() bool {
	return s == StagePlan || s == StageScenario || s == StageSafety || s == StageContent
}

// Next returns the stage that follows s in the pipeline, or empty string
// when s is the final stage or unknown.
func (s Stage) Next() Stage {
	for i, st := range PipelineOrder {
		if st == s && i+1 < len(PipelineOrder) {
			return PipelineOrder[i+1]
		}
	}
	return ""
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusProcessing || s == JobStatusDone ||
		s == JobStatusFailed
}

// Terminal returns true once a job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// AssetLink is a signed, expiring link to a stored artifact.
type AssetLink struct {
	ObjectPath string    `json:"object_path"`
	URL        string    `json:"url"`
	IssuedAt   time.Time `json:"issued_at"`
}

// RetryState records the pending retry for a stage, if any.
type RetryState struct {
	Stage         Stage     `json:"stage"`
	DelayMS       int64     `json:"delay_ms"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
}

// Job represents one drill generation request moving through the pipeline.
type Job struct {
	ID                 string                     `json:"id"                          db:"job_id"`
	Status             JobStatus                  `json:"status"                      db:"status"`
	Payload            json.RawMessage            `json:"payload"                     db:"payload"`
	CurrentTask        *Stage                     `json:"current_task,omitempty"      db:"current_task"`
	CompletedOrder     []Stage                    `json:"completed_order"             db:"completed_order"`
	Attempts           map[Stage]int              `json:"attempts"                    db:"attempts"`
	Retry              *RetryState                `json:"retry,omitempty"             db:"retry"`
	Results            map[Stage]json.RawMessage  `json:"results"                     db:"results"`
	Assets             map[string]AssetLink       `json:"assets"                      db:"assets"`
	AssetsRefreshCount int                        `json:"assets_refresh_count"        db:"assets_refresh_count"`
	FailedStage        *Stage                     `json:"failed_stage,omitempty"      db:"failed_stage"`
	LastError          *string                    `json:"last_error,omitempty"        db:"last_error"`
	LeaseExpiresAt     *time.Time                 `json:"lease_expires_at,omitempty"  db:"lease_expires_at"`
	CreatedAt          time.Time                  `json:"created_at"                  db:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"                  db:"updated_at"`
}

// StageCompleted reports whether the given stage is present in the
// completed order.
func (j *Job) StageCompleted(stage Stage) bool {
	for _, s := range j.CompletedOrder {
		if s == stage {
			return true
		}
	}
	return false
}

// ExpectedStage returns the next stage the pipeline expects to run, or
// empty string when every stage is complete.
func (j *Job) ExpectedStage() Stage {
	if len(j.CompletedOrder) >= len(PipelineOrder) {
		return ""
	}
	return PipelineOrder[len(j.CompletedOrder)]
}

// TaskInvocation is the unit of work delivered to the worker: run one
// stage of one job. Deliveries are at-least-once; DeliveryID changes per
// delivery while JobID and Task identify the logical work.
type TaskInvocation struct {
	JobID      string            `json:"job_id"`
	Task       Stage             `json:"task"`
	DeliveryID string            `json:"delivery_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Validate checks the invocation identifies runnable work.
func (t *TaskInvocation) Validate() error {
	if t.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if !t.Task.Valid() {
		return fmt.Errorf("invalid task: %q", t.Task)
	}
	return nil
}

// JobStatusResponse is the read-model view of a job returned by the API.
type JobStatusResponse struct {
	ID             string               `json:"id"`
	Status         JobStatus            `json:"status"`
	CompletedOrder []Stage              `json:"completed_order"`
	Attempts       map[Stage]int        `json:"attempts,omitempty"`
	Assets         map[string]AssetLink `json:"assets,omitempty"`
	FailedStage    *Stage               `json:"failed_stage,omitempty"`
	LastError      *string              `json:"last_error,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// StatusResponse builds the API view of a job.
func (j *Job) StatusResponse() JobStatusResponse {
	return JobStatusResponse{
		ID:             j.ID,
		Status:         j.Status,
		CompletedOrder: j.CompletedOrder,
		Attempts:       j.Attempts,
		Assets:         j.Assets,
		FailedStage:    j.FailedStage,
		LastError:      j.LastError,
		UpdatedAt:      j.UpdatedAt,
	}
}
