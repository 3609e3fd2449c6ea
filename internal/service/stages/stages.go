// Package stages holds the four pipeline stage executors. Each executor is
// a pure function of the drill request, the prior stage results, and the
// resolved region context; it never mutates the job record.
package stages

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
)

// Input is everything an executor may read.
type Input struct {
	Request *model.DrillRequest
	Results map[model.Stage]json.RawMessage
	Region  *model.RegionContext
}

// Artifact is one binary output of a stage, stored and exposed via a
// signed link under its logical name.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Output is the result of one stage execution.
type Output struct {
	Result    json.RawMessage
	Artifacts []Artifact
}

// Executor produces the output for a single stage.
type Executor interface {
	Execute(ctx context.Context, in Input) (*Output, error)
}

// RegistryOptions groups dependencies for the stage registry.
type RegistryOptions struct {
	Generator core.TextGenerator // Optional: deterministic builders run without it
	Logger    *slog.Logger
}

// Registry maps stage names to executors. Lookup is a plain table; there is
// no dynamic dispatch.
type Registry struct {
	executors map[model.Stage]Executor
}

// NewRegistry builds the registry with all four pipeline stages.
func NewRegistry(opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		executors: map[model.Stage]Executor{
			model.StagePlan:     &PlanExecutor{gen: opts.Generator, logger: logger},
			model.StageScenario: &ScenarioExecutor{gen: opts.Generator, logger: logger},
			model.StageSafety:   &SafetyExecutor{logger: logger},
			model.StageContent:  &ContentExecutor{gen: opts.Generator, logger: logger},
		},
	}
}

// Execute runs the executor registered for the stage.
func (r *Registry) Execute(ctx context.Context, stage model.Stage, in Input) (*Output, error) {
	executor, ok := r.executors[stage]
	if !ok {
		return nil, apperrors.ValidationField("task", "unknown stage")
	}
	if in.Request == nil {
		return nil, apperrors.Validation("drill request is required")
	}
	return executor.Execute(ctx, in)
}

// languagesOrDefault returns the requested languages, defaulting to Japanese.
func languagesOrDefault(req *model.DrillRequest) []string {
	if len(req.Participants.Languages) > 0 {
		return req.Participants.Languages
	}
	return []string{"ja"}
}

// marshalResult wraps marshal failures as internal errors. Executor result
// types always marshal; a failure here is a programming error.
func marshalResult(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal stage result")
	}
	return raw, nil
}
