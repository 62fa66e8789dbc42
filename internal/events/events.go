// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package events

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/paycorridor/internal/aggregation"
	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/indexing"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// Event types.
const (
	TypeIngestion   = "ingestion"
	TypeAggregation = "aggregation"
)

// RunEvent summarizes one finished pipeline run.
type RunEvent struct {
	EventID    string            `json:"event_id"` // the run id, used for JetStream dedup
	Type       string            `json:"type"`
	Job        string            `json:"job,omitempty"`
	Outcome    string            `json:"outcome"` // "success" or an error kind
	Error      string            `json:"error,omitempty"`
	Trigger    string            `json:"trigger"` // "schedule" or "api"
	FinishedAt time.Time         `json:"finished_at"`
	DurationMS int64             `json:"duration_ms"`
	Counts     map[string]int    `json:"counts"`
	Details    map[string]string `json:"details,omitempty"`
}

// Marshal encodes e as JSON.
func (e *RunEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers run events. Publishing is best effort: callers log the
// error and carry on.
type Publisher interface {
	Publish(ctx context.Context, e *RunEvent) error
	Close() error
}

// New returns the NATS publisher when cfg.Enabled, otherwise a no-op.
func New(cfg *config.NATSConfig) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	p, err := NewNATSPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, *RunEvent) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }

// FromIngestion builds the event for an ingestion run.
func FromIngestion(r *indexing.RunReport, err error, trigger string) *RunEvent {
	e := newEvent(TypeIngestion, r.RunID, err, trigger, r.Duration)
	e.Job = r.JobName
	e.Counts = map[string]int{
		"pages":      r.Pages,
		"fetched":    r.Fetched,
		"inserted":   r.Inserted,
		"duplicates": r.Duplicates,
	}
	e.Details = map[string]string{
		"start_position": r.StartPosition,
		"final_position": r.FinalPosition,
	}
	if r.StopReason != "" {
		e.Details["stop_reason"] = r.StopReason
	}
	return e
}

// FromAggregation builds the event for an aggregation run.
func FromAggregation(r *aggregation.RunReport, err error, trigger string) *RunEvent {
	e := newEvent(TypeAggregation, r.RunID, err, trigger, r.Duration)
	e.Counts = map[string]int{
		"pages":    r.Pages,
		"scanned":  r.Scanned,
		"upserted": r.Upserted,
	}
	if !r.WindowEnd.IsZero() {
		e.Details = map[string]string{
			"window_start": r.WindowStart.Format(time.RFC3339),
			"window_end":   r.WindowEnd.Format(time.RFC3339),
		}
	}
	return e
}

func newEvent(typ, runID string, err error, trigger string, d time.Duration) *RunEvent {
	e := &RunEvent{
		EventID:    runID,
		Type:       typ,
		Outcome:    "success",
		Trigger:    trigger,
		FinishedAt: time.Now().UTC(),
		DurationMS: d.Milliseconds(),
	}
	if err != nil {
		e.Outcome = pipeline.Kind(err)
		e.Error = err.Error()
	}
	return e
}

// PublishQuietly publishes e and logs instead of returning failures.
func PublishQuietly(ctx context.Context, p Publisher, e *RunEvent) {
	if p == nil {
		return
	}
	err := p.Publish(ctx, e)
	metrics.RecordEventPublish(e.Type, err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_type", e.Type).Str("event_id", e.EventID).Msg("Failed to publish run event")
	}
}
