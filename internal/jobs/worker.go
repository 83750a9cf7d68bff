package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"rota/internal/notify"
)

// Queue is the slice of Repo the worker needs, kept narrow so tests can
// stub it.
type Queue interface {
	Claim(workerID string) (*Job, error)
	MarkDone(id uint64) error
	MarkFailed(id uint64, errMsg string) error
	RetryLater(id uint64, attempts int, runAt time.Time, errMsg string) error
}

// Worker drains the queue and delivers notification events. Delivery is a
// structured log line, plus a webhook POST when a URL is configured.
type Worker struct {
	ID         string
	Queue      Queue
	WebhookURL string
	Client     *http.Client
	Log        *slog.Logger
}

func (w *Worker) logger() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Queue.Claim(w.ID)
			if err != nil {
				w.logger().Error("worker claim failed", "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.Handle(job)
		}
	}
}

func (w *Worker) Handle(job *Job) {
	switch job.Type {
	case notify.JobTypeDispatch:
		w.handleDispatch(job)
	default:
		_ = w.Queue.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleDispatch(job *Job) {
	var e notify.Event
	if err := json.Unmarshal(job.Payload, &e); err != nil {
		_ = w.Queue.MarkFailed(job.ID, "bad payload")
		return
	}

	deliveryID := uuid.NewString()
	w.logger().Info("notification",
		"delivery", deliveryID,
		"event", e.Event,
		"changeType", e.ChangeType,
		"actor", e.ActorName,
		"role", e.ActorRole,
		"requestId", e.RequestID,
		"week", e.WeekNumber,
		"day", e.DayName,
		"summary", e.Summary,
		"reason", e.Reason,
	)

	if w.WebhookURL != "" {
		if err := w.post(deliveryID, job.Payload); err != nil {
			w.retry(job, err.Error())
			return
		}
	}
	_ = w.Queue.MarkDone(job.ID)
}

func (w *Worker) post(deliveryID string, payload []byte) error {
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequest(http.MethodPost, w.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Queue.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Queue.RetryLater(job.ID, attempts, next, errMsg)
}
