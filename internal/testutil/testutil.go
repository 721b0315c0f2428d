// Package testutil provides scripted pipeline collaborators for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/keifu-ai/keifu/internal/model"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Record builds a raw record with the given extracted fields.
func Record(source, id string, fields map[string]string) model.RawRecord {
	return model.RawRecord{
		Source:          source,
		RecordID:        id,
		RecordType:      "birth",
		ExtractedFields: fields,
		AccessedAt:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// RecordWithConfidence is Record with an explicit confidence hint.
func RecordWithConfidence(source, id string, fields map[string]string, confidence float64) model.RawRecord {
	r := Record(source, id, fields)
	r.ConfidenceHint = &confidence
	return r
}

// ScriptedSource is a registry.Source with pre-programmed behavior.
type ScriptedSource struct {
	SourceName string
	Meta       model.SourceMetadata
	Records    []model.RawRecord
	Err        error
	// FailCount fails the first N Search calls before succeeding.
	FailCount int
	// Delay is applied per Search call, honoring ctx cancellation.
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

// Name implements registry.Source.
func (s *ScriptedSource) Name() string { return s.SourceName }

// Metadata implements registry.Source.
func (s *ScriptedSource) Metadata() model.SourceMetadata { return s.Meta }

// Search implements registry.Source.
func (s *ScriptedSource) Search(ctx context.Context, _ model.SearchQuery) ([]model.RawRecord, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if call <= s.FailCount {
		return nil, fmt.Errorf("scripted failure %d/%d", call, s.FailCount)
	}
	out := make([]model.RawRecord, len(s.Records))
	copy(out, s.Records)
	return out, nil
}

// Calls returns how many times Search was invoked.
func (s *ScriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ScriptedAdjudicator returns a fixed verdict and records its inputs.
type ScriptedAdjudicator struct {
	Verdict model.AdjudicationVerdict
	Err     error

	mu     sync.Mutex
	inputs []model.AdjudicationInput
}

// Adjudicate implements adjudicate.Adjudicator.
func (a *ScriptedAdjudicator) Adjudicate(_ context.Context, input model.AdjudicationInput) (model.AdjudicationVerdict, error) {
	a.mu.Lock()
	a.inputs = append(a.inputs, input)
	a.mu.Unlock()
	if a.Err != nil {
		return model.AdjudicationVerdict{}, a.Err
	}
	return a.Verdict, nil
}

// Inputs returns every conflict the adjudicator was asked to settle.
func (a *ScriptedAdjudicator) Inputs() []model.AdjudicationInput {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AdjudicationInput, len(a.inputs))
	copy(out, a.inputs)
	return out
}
