package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/townready/townready/config"
	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/data"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
)

// KPIServiceOptions groups dependencies for KPIService.
type KPIServiceOptions struct {
	Jobs   core.JobStore
	Events core.KPIRepository
	Config config.KPIConfig

	Logger       *slog.Logger
	TimeProvider data.TimeProvider
}

// KPIService ingests post-drill metric webhooks. Payloads are free-form
// JSON from third-party tools; configured JMESPath expressions pull the
// known metrics out while the raw body is kept verbatim.
type KPIService struct {
	jobs   core.JobStore
	events core.KPIRepository
	cfg    config.KPIConfig

	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewKPIService constructs a KPIService. It fails when a configured
// extraction expression does not parse.
func NewKPIService(opts KPIServiceOptions) (*KPIService, error) {
	if opts.Jobs == nil {
		panic("JobStore is required")
	}
	if opts.Events == nil {
		panic("KPIRepository is required")
	}

	for _, expr := range []string{opts.Config.AttendancePath, opts.Config.EvacTimePath, opts.Config.QuizScorePath} {
		if expr == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile KPI expression %q: %w", expr, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	return &KPIService{
		jobs:         opts.Jobs,
		events:       opts.Events,
		cfg:          opts.Config,
		logger:       logger,
		timeProvider: tp,
	}, nil
}

// Ingest extracts the known metrics from a webhook payload and stores the
// event against the job. The job must exist; a payload yielding no metric
// at all is rejected.
func (s *KPIService) Ingest(ctx context.Context, jobID string, payload json.RawMessage) (*model.KPIEvent, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job_id is required")
	}

	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "decode KPI payload")
	}

	event := &model.KPIEvent{
		JobID:       jobID,
		Attendance:  s.extract(ctx, s.cfg.AttendancePath, doc),
		EvacSeconds: s.extract(ctx, s.cfg.EvacTimePath, doc),
		QuizScore:   s.extract(ctx, s.cfg.QuizScorePath, doc),
		Raw:         payload,
		ReceivedAt:  s.timeProvider.Now().UTC(),
	}
	if err := event.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "KPI event")
	}

	stored, err := s.events.Insert(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("insert KPI event: %w", err)
	}
	return stored, nil
}

// ListByJob returns every KPI event recorded for a job, oldest first.
func (s *KPIService) ListByJob(ctx context.Context, jobID string) ([]*model.KPIEvent, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job_id is required")
	}
	events, err := s.events.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list KPI events: %w", err)
	}
	return events, nil
}

// extract evaluates one JMESPath expression and coerces the result to a
// float. Evaluation trouble only drops the metric, never the event.
func (s *KPIService) extract(ctx context.Context, expr string, doc any) *float64 {
	if expr == "" {
		return nil
	}
	result, err := jmespath.Search(expr, doc)
	if err != nil {
		s.logger.WarnContext(ctx, "KPI expression failed", "expr", expr, "err", err)
		return nil
	}
	return asFloat(result)
}

func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	}
	return nil
}
