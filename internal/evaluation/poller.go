// Package evaluation tracks a server-side batch evaluation job. A Poller
// drives the polling loop against the job status API, folding partial
// per-subject payloads into a ResultSet until the task reaches a terminal
// state.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"assessment-backend/pkg/models"
)

const (
	DefaultPollInterval = 5 * time.Second

	// stillProcessingMarker is the substring the evaluation service embeds in
	// the raw response when the job failed because the source upload has not
	// finished server-side processing. The API exposes no structured failure
	// reason, so string matching is the only handle we have.
	stillProcessingMarker = "File Still Processing"
)

var (
	// ErrTaskFailed is returned when the task reaches FAILED.
	ErrTaskFailed = errors.New("evaluation task failed")

	// ErrSourceProcessing wraps ErrTaskFailed for the transient sub-case
	// where the response artifact is still being processed upstream.
	ErrSourceProcessing = fmt.Errorf("source file still processing: %w", ErrTaskFailed)

	// ErrPollDeadline is returned when the configured attempt budget runs out
	// before the task converges.
	ErrPollDeadline = errors.New("evaluation polling gave up before the task finished")
)

// TaskAPI is the slice of the evaluation service the poller needs.
type TaskAPI interface {
	SubmitEvaluation(ctx context.Context, req models.EvaluationSubmitRequest) (string, error)
	TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error)
}

// Poller owns one task's polling loop and result set. It is safe to read
// Results while Poll runs on another goroutine.
type Poller struct {
	client      TaskAPI
	results     *ResultSet
	interval    time.Duration
	maxAttempts int

	mu         sync.Mutex
	lastStatus string
}

type Option func(*Poller)

// WithInterval overrides the fixed delay between status fetches.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts caps the number of status fetches; zero means unbounded.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) { p.maxAttempts = n }
}

func NewPoller(client TaskAPI, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		results:  NewResultSet(),
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit sends the batch evaluation request once and returns the task id.
// There is no retry: a submit failure is surfaced straight to the caller.
func (p *Poller) Submit(ctx context.Context, req models.EvaluationSubmitRequest) (string, error) {
	taskID, err := p.client.SubmitEvaluation(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submitting evaluation: %w", err)
	}
	slog.Info("evaluation task submitted", "task_id", taskID, "subjects", len(req.Subjects))
	return taskID, nil
}

// Poll fetches task status on a fixed interval until the task reaches a
// terminal state, the context is cancelled, or the attempt budget runs out.
//
// A transport error or an unparsable partial payload is logged and the loop
// continues; a malformed update must never abort polling. On
// EVALUATION_COMPLETED the final payload, if parseable, replaces the entire
// result set. On FAILED the raw response distinguishes the
// still-processing sub-case from all other failures.
func (p *Poller) Poll(ctx context.Context, taskID string) error {
	timer := time.NewTicker(p.interval)
	defer timer.Stop()

	lastRank := 0
	for attempt := 1; ; attempt++ {
		if p.maxAttempts > 0 && attempt > p.maxAttempts {
			return fmt.Errorf("task %s: %w", taskID, ErrPollDeadline)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		status, err := p.client.TaskStatus(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("error fetching evaluation task status", "task_id", taskID, "error", err)
			continue
		}

		rank := statusRank(status.Status)
		if rank < lastRank {
			// Task statuses only move forward; a stale reply must not
			// re-open a more advanced state.
			slog.Warn("ignoring out-of-order task status", "task_id", taskID, "status", status.Status)
			continue
		}
		lastRank = rank
		p.setLastStatus(status.Status)

		switch status.Status {
		case models.StatusEvaluationCompleted:
			if final, err := decodeResults(status.Response); err != nil {
				slog.Error("error parsing final evaluation payload, keeping last partial state", "task_id", taskID, "error", err)
			} else {
				p.results.Replace(final)
			}
			slog.Info("evaluation task completed", "task_id", taskID, "subjects", p.results.Len())
			return nil

		case models.StatusFailed:
			if strings.Contains(status.Response, stillProcessingMarker) {
				return fmt.Errorf("task %s: %w", taskID, ErrSourceProcessing)
			}
			return fmt.Errorf("task %s: %w", taskID, ErrTaskFailed)

		default:
			if status.Response == "" {
				continue
			}
			partial, err := decodeResults(status.Response)
			if err != nil {
				slog.Error("error parsing partial evaluation payload, skipping update", "task_id", taskID, "error", err)
				continue
			}
			p.results.Merge(partial)
		}
	}
}

// Results returns the current merged result snapshot.
func (p *Poller) Results() []models.SubjectResult {
	return p.results.Snapshot()
}

// LastStatus reports the most recent task status seen by the loop; "" before
// the first successful fetch.
func (p *Poller) LastStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStatus
}

func (p *Poller) setLastStatus(status string) {
	p.mu.Lock()
	p.lastStatus = status
	p.mu.Unlock()
}

// decodeResults parses the embedded per-subject JSON document carried in a
// task status response.
func decodeResults(payload string) ([]models.SubjectResult, error) {
	var results []models.SubjectResult
	if err := json.Unmarshal([]byte(payload), &results); err != nil {
		return nil, fmt.Errorf("decoding subject results: %w", err)
	}
	return results, nil
}
