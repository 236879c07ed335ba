// Package invocation turns an invocation event into exactly one Embulk run and
// one response envelope.
package invocation

import (
	"context"
	"fmt"
	"time"

	"embulkshim/internal/engine"
	"embulkshim/internal/observability"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
)

const historyWriteTimeout = 5 * time.Second

// Executor runs one validated request to completion.
type Executor interface {
	Run(ctx context.Context, req engine.Request) engine.Outcome
}

type Handler struct {
	executor Executor
	logger   *observability.Logger
	history  HistoryStore

	now   func() time.Time
	newID func() string
}

// NewHandler wires a handler. history may be nil to disable run history.
func NewHandler(executor Executor, logger *observability.Logger, history HistoryStore) *Handler {
	if logger == nil {
		logger = observability.Discard()
	}
	return &Handler{
		executor: executor,
		logger:   logger,
		history:  history,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Handle validates the event, runs Embulk once and maps the outcome to an
// envelope. Failures are reported in the envelope; the error result is
// always nil so the Lambda runtime never sees a function error.
func (h *Handler) Handle(ctx context.Context, event map[string]any) (Response, error) {
	id := h.invocationID(ctx)
	log := h.logger.With("invocation_id", id)
	startedAt := h.now()

	var outcome engine.Outcome
	req, err := engine.ParseRequest(event)
	if err != nil {
		outcome = engine.ValidationFailed(err)
	} else {
		log.Info(fmt.Sprintf("Using config file: '%s'", req.ConfigFileName))
		log.Info("Starting Embulk execution...")
		outcome = h.executor.Run(ctx, req)
	}

	resp := ResponseFor(outcome)
	if outcome.OK() {
		log.Success(outcome.Message())
	} else {
		log.Error(outcome.Message(), "kind", outcome.Kind)
		log.Failed(outcome.Message(), "status_code", resp.StatusCode)
	}

	h.record(ctx, log, Record{
		ID:             id,
		ConfigFileName: req.ConfigFileName,
		Kind:           outcome.Kind,
		ExitCode:       outcome.ExitCode,
		StatusCode:     resp.StatusCode,
		Message:        outcome.Message(),
		StartedAt:      startedAt,
		EndedAt:        h.now(),
	})
	return resp, nil
}

func (h *Handler) invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return h.newID()
}

// record appends to the history store; errors are logged only.
func (h *Handler) record(ctx context.Context, log *observability.Logger, rec Record) {
	if h.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	if err := h.history.SaveRecord(ctx, rec); err != nil {
		log.Warn("history write failed", "err", err)
	}
}
