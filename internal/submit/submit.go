// Package submit implements the submission flow: validate, format, try
// the gateway while online, fall back to the offline queue otherwise.
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldwork/formsync/internal/form"
	"github.com/fieldwork/formsync/internal/queue"
	"github.com/fieldwork/formsync/internal/syncd"
	"github.com/fieldwork/formsync/internal/validate"
)

// Payload is the formatted, JSON-serializable shape of one submission.
// Values are keyed by field name; metadata identifies the form schema
// the values were collected under.
type Payload struct {
	Form        string             `json:"form"`
	FormVersion int                `json:"formVersion,omitempty"`
	SubmittedAt time.Time          `json:"submittedAt"`
	Values      validate.FormState `json:"values"`
}

// Format produces the submission payload for a filled-out form. Only
// fields declared by the schema are carried; stray form state keys are
// dropped.
func Format(f *form.Form, state validate.FormState, now time.Time) (json.RawMessage, error) {
	values := make(validate.FormState, len(f.Fields))
	for _, fs := range f.Fields {
		if v, ok := state[fs.Name]; ok {
			values[fs.Name] = v
		}
	}
	payload := Payload{
		Form:        f.Name,
		FormVersion: f.Version,
		SubmittedAt: now.UTC(),
		Values:      values,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("format submission: %w", err)
	}
	return data, nil
}

// Result reports how a submission was disposed of.
type Result struct {
	// Delivered is true when the gateway accepted the submission online;
	// false means it was queued for background sync.
	Delivered bool   `json:"delivered"`
	QueueID   string `json:"queueId,omitempty"`
	Message   string `json:"message"`
}

// Service coordinates one submission attempt.
type Service struct {
	queue   *queue.Store
	gateway syncd.Gateway
	probe   syncd.Probe
	log     *slog.Logger
}

// NewService creates a submission service over the given collaborators.
func NewService(q *queue.Store, gw syncd.Gateway, probe syncd.Probe, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{queue: q, gateway: gw, probe: probe, log: log}
}

// Submit tries online-first delivery and falls back to the offline
// queue. Only a queue failure is an error: a dead network or a refusing
// server still ends in a successful enqueue.
func (s *Service) Submit(ctx context.Context, payload json.RawMessage, formTitle string) (Result, error) {
	if s.probe.Online(ctx) {
		res, err := s.gateway.Submit(ctx, payload)
		if err == nil && res.Success {
			s.log.Info("submission delivered online", "form", formTitle)
			return Result{Delivered: true, Message: res.Message}, nil
		}
		if err != nil {
			s.log.Warn("online submission failed, queueing", "form", formTitle, "error", err)
		} else {
			s.log.Warn("online submission rejected, queueing", "form", formTitle, "message", res.Message)
		}
	} else {
		s.log.Info("offline, queueing submission", "form", formTitle)
	}

	id, err := s.queue.Enqueue(payload, formTitle)
	if err != nil {
		return Result{}, fmt.Errorf("queue submission: %w", err)
	}
	return Result{QueueID: id, Message: "Saved offline, will sync when connected"}, nil
}
