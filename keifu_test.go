package keifu_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu"
)

// stubSource is a minimal public Source for facade tests.
type stubSource struct {
	name    string
	records []keifu.Record
	err     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Metadata() keifu.SourceMetadata {
	return keifu.SourceMetadata{
		Regions:     []string{"nordic"},
		RecordTypes: []string{"birth", "death"},
	}
}

func (s *stubSource) Search(_ context.Context, _ keifu.Query) ([]keifu.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func erikRecord(id string) keifu.Record {
	return keifu.Record{
		RecordID:   id,
		RecordType: "birth",
		Fields: map[string]string{
			"full_name":  "Erik Lindqvist",
			"birth_year": "1882",
		},
		AccessedAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func newApp(t *testing.T, opts ...keifu.Option) *keifu.App {
	t.Helper()
	// Deterministic adjudicator selection; no network probing in tests.
	t.Setenv("KEIFU_ADJUDICATOR_PROVIDER", "rules")

	app, err := keifu.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func TestNewRegistersSources(t *testing.T) {
	app := newApp(t,
		keifu.WithSource(&stubSource{name: "arkivdigital"}),
		keifu.WithSource(&stubSource{name: "riksarkivet"}),
	)

	assert.Equal(t, []string{"arkivdigital", "riksarkivet"}, app.Sources())
}

func TestNewRejectsDuplicateSource(t *testing.T) {
	t.Setenv("KEIFU_ADJUDICATOR_PROVIDER", "rules")
	_, err := keifu.New(
		keifu.WithSource(&stubSource{name: "same"}),
		keifu.WithSource(&stubSource{name: "same"}),
	)
	assert.Error(t, err)
}

func TestRegisterSourceAfterConstruction(t *testing.T) {
	app := newApp(t)
	require.NoError(t, app.RegisterSource(&stubSource{name: "late"}))
	assert.Equal(t, []string{"late"}, app.Sources())
}

func TestVersionDefaultsAndOverride(t *testing.T) {
	app := newApp(t)
	assert.Equal(t, "dev", app.Version())

	app = newApp(t, keifu.WithVersion("1.2.3"))
	assert.Equal(t, "1.2.3", app.Version())
}

func TestResearchEndToEnd(t *testing.T) {
	app := newApp(t,
		keifu.WithSource(&stubSource{name: "arkivdigital", records: []keifu.Record{erikRecord("r1")}}),
		keifu.WithSource(&stubSource{name: "riksarkivet", records: []keifu.Record{erikRecord("r2")}}),
	)

	result, err := app.Research(context.Background(), keifu.Query{
		Surname:    "Lindqvist",
		BirthPlace: "Växjö, Sweden",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)
	require.NotNil(t, result.Primary)
	assert.Equal(t, "1882", result.Primary.BestEstimate["birth_year"])
	assert.Len(t, result.Primary.Citations, 2)
	assert.False(t, result.RequiresHumanDecision)
	assert.NotEmpty(t, result.Events, "trace events surface in the public result")
}

func TestResearchInvalidQuery(t *testing.T) {
	app := newApp(t, keifu.WithSource(&stubSource{name: "arkivdigital"}))

	result, err := app.Research(context.Background(), keifu.Query{})
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.RunID, "failed runs still carry a trace")
}

func TestResearchToleratesFailingSource(t *testing.T) {
	app := newApp(t,
		keifu.WithSource(&stubSource{name: "good", records: []keifu.Record{erikRecord("r1")}}),
		keifu.WithSource(&stubSource{name: "bad", err: errors.New("upstream down")}),
	)

	result, err := app.Research(context.Background(), keifu.Query{
		Surname:    "Lindqvist",
		BirthPlace: "Sweden",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestResearchUsesCustomAdjudicator(t *testing.T) {
	conflicting := &stubSource{name: "a", records: []keifu.Record{
		{RecordID: "r1", RecordType: "birth", Fields: map[string]string{
			"full_name": "Erik Lindqvist", "birth_year": "1882", "death_year": "1951",
		}},
	}}
	disagreeing := &stubSource{name: "b", records: []keifu.Record{
		{RecordID: "r2", RecordType: "birth", Fields: map[string]string{
			"full_name": "Erik Lindqvist", "birth_year": "1882", "death_year": "1915",
		}},
	}}

	adj := &recordingAdjudicator{verdict: keifu.Verdict{Status: "pending_review"}}
	app := newApp(t,
		keifu.WithSource(conflicting),
		keifu.WithSource(disagreeing),
		keifu.WithAdjudicator(adj),
	)

	result, err := app.Research(context.Background(), keifu.Query{
		Surname:    "Lindqvist",
		BirthPlace: "Sweden",
	})
	require.NoError(t, err)

	require.Len(t, adj.conflicts, 1)
	assert.Equal(t, "death", adj.conflicts[0].FactType)
	require.Len(t, adj.conflicts[0].Assertions, 2)
	assert.True(t, result.RequiresHumanDecision)
}

// recordingAdjudicator captures the conflicts it is handed.
type recordingAdjudicator struct {
	verdict   keifu.Verdict
	conflicts []keifu.Conflict
}

func (a *recordingAdjudicator) Adjudicate(_ context.Context, c keifu.Conflict) (keifu.Verdict, error) {
	a.conflicts = append(a.conflicts, c)
	return a.verdict, nil
}
