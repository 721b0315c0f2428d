package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/registry"
	"github.com/keifu-ai/keifu/internal/testutil"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(&testutil.ScriptedSource{SourceName: "arkivdigital"}))

	err := reg.Register(&testutil.ScriptedSource{SourceName: "arkivdigital"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, 1, reg.Len())
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	reg := registry.New()
	assert.Error(t, reg.Register(&testutil.ScriptedSource{SourceName: ""}))
}

func TestLookup(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(&testutil.ScriptedSource{SourceName: "familysearch"}))

	s, ok := reg.Lookup("familysearch")
	require.True(t, ok)
	assert.Equal(t, "familysearch", s.Name())

	_, ok = reg.Lookup("unknown")
	assert.False(t, ok)
}

func TestNamesSorted(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(&testutil.ScriptedSource{SourceName: "riksarkivet"}))
	require.NoError(t, reg.Register(&testutil.ScriptedSource{SourceName: "ancestry"}))
	require.NoError(t, reg.Register(&testutil.ScriptedSource{SourceName: "myheritage"}))

	assert.Equal(t, []string{"ancestry", "myheritage", "riksarkivet"}, reg.Names())
}

func TestRankForQueryPriorities(t *testing.T) {
	reg := registry.New()
	// Region match (2) + one record type (1) + original tier hint (1) = 4.
	require.NoError(t, reg.Register(&testutil.ScriptedSource{
		SourceName: "riksarkivet",
		Meta: model.SourceMetadata{
			Regions:     []model.Region{model.RegionNordic},
			RecordTypes: []string{"birth", "death"},
			TierHint:    model.TierOriginal,
		},
	}))
	// Region match only = 2.
	require.NoError(t, reg.Register(&testutil.ScriptedSource{
		SourceName: "arkivdigital",
		Meta:       model.SourceMetadata{Regions: []model.Region{model.RegionNordic}},
	}))
	// No match = 0.
	require.NoError(t, reg.Register(&testutil.ScriptedSource{
		SourceName: "findmypast",
		Meta:       model.SourceMetadata{Regions: []model.Region{model.RegionUKIreland}},
	}))

	query := model.SearchQuery{Surname: "Lindqvist", RecordTypes: []string{"birth"}}
	ranked := reg.RankForQuery(query, model.RegionNordic)

	require.Len(t, ranked, 3)
	assert.Equal(t, "riksarkivet", ranked[0].Name)
	assert.Equal(t, 4, ranked[0].Priority)
	assert.Equal(t, "arkivdigital", ranked[1].Name)
	assert.Equal(t, 2, ranked[1].Priority)
	assert.Equal(t, "findmypast", ranked[2].Name)
	assert.Equal(t, 0, ranked[2].Priority)
}

func TestRankForQueryTiesBreakOnName(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(&testutil.ScriptedSource{SourceName: "zeta"}))
	require.NoError(t, reg.Register(&testutil.ScriptedSource{SourceName: "alpha"}))

	ranked := reg.RankForQuery(model.SearchQuery{}, "")
	require.Len(t, ranked, 2)
	assert.Equal(t, "alpha", ranked[0].Name)
	assert.Equal(t, "zeta", ranked[1].Name)
}
