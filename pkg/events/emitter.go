// Package events handles event emission for run lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Emitter publishes run lifecycle events for downstream reporting
// consumers.
type Emitter struct {
	producer *kafka.Producer
	logger   logging.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger logging.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// RunStarted emits a run.started event
func (e *Emitter) RunStarted(ctx context.Context, runID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RunStarted")
	defer span.End()

	event := &kafka.RunEvent{
		EventType: "run.started",
		RunID:     runID,
	}

	if err := e.producer.PublishRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run.started event")
		return err
	}

	return nil
}

// RunCompleted emits a run.completed or run.failed event carrying the
// full summary.
func (e *Emitter) RunCompleted(ctx context.Context, summary *models.RunSummary) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RunCompleted")
	defer span.End()

	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	eventType := "run.completed"
	if summary.Interrupted {
		eventType = "run.interrupted"
	}

	event := &kafka.RunEvent{
		EventType: eventType,
		RunID:     summary.RunID,
		Data:      data,
	}

	if err := e.producer.PublishRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run completed event")
		return err
	}

	return nil
}
