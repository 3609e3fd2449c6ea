// Package queue publishes task invocations over HTTP push, mirroring the
// envelope shape of a Pub/Sub push subscription so the worker can drive
// itself in development and sit behind a real queue in production.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/townready/townready/config"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
)

// PushMessage is the inner message of a push delivery. Data carries the
// base64-encoded task invocation JSON.
type PushMessage struct {
	Data        []byte            `json:"data"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// PushEnvelope is the wire format POSTed to the push endpoint.
type PushEnvelope struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription,omitempty"`
}

// DecodeInvocation unpacks the task invocation carried by the envelope.
func (e *PushEnvelope) DecodeInvocation() (model.TaskInvocation, error) {
	var inv model.TaskInvocation
	if len(e.Message.Data) == 0 {
		return inv, apperrors.ValidationField("message.data", "message data is required")
	}
	if err := json.Unmarshal(e.Message.Data, &inv); err != nil {
		return inv, apperrors.Wrap(err, apperrors.ErrCodeValidation, "decode task invocation")
	}
	inv.DeliveryID = e.Message.MessageID
	if inv.Attributes == nil {
		inv.Attributes = e.Message.Attributes
	}
	return inv, nil
}

// PublisherOptions groups dependencies for Publisher.
type PublisherOptions struct {
	Config config.QueueConfig

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Publisher implements core.TaskPublisher over HTTP push. A zero delay
// publishes synchronously; a positive delay schedules the publish on a
// timer, which is a process-local approximation of queue-side delayed
// delivery. A timer lost to a process death is republished by the retry
// sweeper.
type Publisher struct {
	cfg    config.QueueConfig
	client *http.Client
	logger *slog.Logger
}

// NewPublisher constructs a Publisher.
func NewPublisher(opts PublisherOptions) *Publisher {
	if opts.Config.PushEndpoint == "" {
		panic("push endpoint is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Config.PublishTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		cfg:    opts.Config,
		client: client,
		logger: logger,
	}
}

// Publish delivers one task invocation to the push endpoint.
func (p *Publisher) Publish(ctx context.Context, inv model.TaskInvocation, delay time.Duration) error {
	body, err := p.envelope(inv)
	if err != nil {
		return err
	}

	if delay <= 0 {
		return p.post(ctx, body)
	}

	// Delayed publishes outlive the triggering delivery's context.
	time.AfterFunc(delay, func() {
		deadline := delay + p.cfg.PublishTimeout
		dctx, cancel := context.WithTimeout(context.Background(), deadline)
		defer cancel()
		if postErr := p.post(dctx, body); postErr != nil {
			p.logger.Error("delayed publish failed",
				"job_id", inv.JobID,
				"task", inv.Task,
				"err", postErr,
			)
		}
	})
	return nil
}

func (p *Publisher) envelope(inv model.TaskInvocation) ([]byte, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("marshal invocation: %w", err)
	}
	body, err := json.Marshal(PushEnvelope{
		Message: PushMessage{
			Data:       data,
			Attributes: inv.Attributes,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, nil
}

func (p *Publisher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.PushEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "publish request")
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read path

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperrors.Unavailablef("push endpoint returned %d", resp.StatusCode)
	default:
		return apperrors.Internalf("push endpoint returned %d", resp.StatusCode)
	}
}
