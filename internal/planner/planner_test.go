package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/planner"
	"github.com/keifu-ai/keifu/internal/registry"
	"github.com/keifu-ai/keifu/internal/testutil"
)

func TestSurnameVariants(t *testing.T) {
	variants := planner.SurnameVariants("Johansson")
	require.NotEmpty(t, variants)
	assert.Equal(t, "Johansson", variants[0], "original comes first")
	assert.Contains(t, variants, "Johanssen", "son/sen substitution")

	// Symmetric: the reverse direction also applies.
	variants = planner.SurnameVariants("Jensen")
	assert.Contains(t, variants, "Jenson")

	// w/v swaps both ways.
	variants = planner.SurnameVariants("Wallin")
	assert.Contains(t, variants, "Vallin")
}

func TestSurnameVariantsDedupe(t *testing.T) {
	variants := planner.SurnameVariants("Smith")
	seen := map[string]bool{}
	for _, v := range variants {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
}

func TestSurnameVariantsEmpty(t *testing.T) {
	assert.Nil(t, planner.SurnameVariants(""))
	assert.Nil(t, planner.SurnameVariants("   "))
}

func TestInferRegion(t *testing.T) {
	tests := []struct {
		place string
		want  model.Region
	}{
		{"Växjö, Sweden", model.RegionNordic},
		{"Bergen, Norway", model.RegionNordic},
		{"London, England", model.RegionUKIreland},
		{"Bavaria", model.RegionGermany},
		{"Boston, Massachusetts", model.RegionUSA},
		{"Ontario", model.RegionCanada},
		{"Sydney, Australia", model.RegionAustraliaNZ},
		{"Atlantis", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, planner.InferRegion(tt.place), tt.place)
	}
}

func TestCanonicalRegion(t *testing.T) {
	assert.Equal(t, model.RegionNordic, planner.CanonicalRegion("Scandinavia"))
	assert.Equal(t, model.RegionUKIreland, planner.CanonicalRegion("uk"))
	assert.Equal(t, model.RegionUSA, planner.CanonicalRegion("usa"))
	assert.Equal(t, model.RegionNordic, planner.CanonicalRegion("nordic"))
	assert.Equal(t, model.Region(""), planner.CanonicalRegion("mars"))
}

func newPlannerWithSources(t *testing.T, names ...string) *planner.Planner {
	t.Helper()
	reg := registry.New()
	for _, name := range names {
		require.NoError(t, reg.Register(&testutil.ScriptedSource{
			SourceName: name,
			Meta: model.SourceMetadata{
				Regions:     []model.Region{model.RegionNordic},
				RecordTypes: []string{"birth", "death"},
			},
		}))
	}
	return planner.New(reg, testutil.Logger())
}

func TestCreatePlanRequiresSurnameOrStrongIdentifiers(t *testing.T) {
	p := newPlannerWithSources(t, "arkivdigital")

	_, err := p.CreatePlan(model.SearchQuery{}, 0, 60)
	assert.Error(t, err, "empty query rejected")

	_, err = p.CreatePlan(model.SearchQuery{SpouseName: "Anna"}, 0, 60)
	assert.Error(t, err, "spouse without birth year rejected")

	_, err = p.CreatePlan(model.SearchQuery{
		SpouseName: "Anna",
		BirthYear:  model.YearRange{Year: 1880},
	}, 0, 60)
	assert.NoError(t, err, "strong identifiers allow a surname-less plan")
}

func TestCreatePlanRequiresPositiveBudget(t *testing.T) {
	p := newPlannerWithSources(t, "arkivdigital")
	_, err := p.CreatePlan(model.SearchQuery{Surname: "Lindqvist"}, 0, 0)
	assert.Error(t, err)
}

func TestCreatePlanShape(t *testing.T) {
	p := newPlannerWithSources(t, "arkivdigital", "riksarkivet", "familysearch")

	plan, err := p.CreatePlan(model.SearchQuery{
		Surname:    "Lindqvist",
		BirthPlace: "Växjö, Sweden",
	}, 0, 90)
	require.NoError(t, err)

	assert.NotEqual(t, "", plan.ID.String())
	assert.Equal(t, model.RegionNordic, plan.Region, "region inferred from birth place")
	assert.Equal(t, "Lindqvist", plan.SurnameVariants[0])
	assert.Len(t, plan.SourceBudgets, 3)
	assert.Equal(t, 90.0, plan.TotalBudgetSeconds)
	assert.Greater(t, plan.FirstPassSourceLimit, 0)
	assert.Greater(t, plan.SecondPassThreshold, 0.0)
	// Record types default when the query does not narrow them.
	assert.ElementsMatch(t, []string{"birth", "death", "marriage", "census"}, plan.Query.RecordTypes)
}

func TestCreatePlanBudgetAllocation(t *testing.T) {
	p := newPlannerWithSources(t, "a", "b", "c")

	plan, err := p.CreatePlan(model.SearchQuery{Surname: "Berg", BirthPlace: "Sweden"}, 0, 60)
	require.NoError(t, err)

	for _, b := range plan.SourceBudgets {
		assert.Greater(t, b.TimeoutSeconds, 0.0)
		assert.LessOrEqual(t, b.TimeoutSeconds, 45.0, "per-source timeout hard cap")
		assert.Greater(t, b.MaxResults, 0)
		assert.GreaterOrEqual(t, b.RetryCount, 1)
	}

	// High-priority sources (region match = 2) get the bigger result cap.
	assert.Equal(t, 50, plan.SourceBudgets[0].MaxResults)
	assert.Equal(t, 2, plan.SourceBudgets[0].RetryCount)
}

func TestCreatePlanMaxSourcesTruncates(t *testing.T) {
	p := newPlannerWithSources(t, "a", "b", "c", "d", "e")

	plan, err := p.CreatePlan(model.SearchQuery{Surname: "Berg"}, 2, 60)
	require.NoError(t, err)
	assert.Len(t, plan.SourceBudgets, 2)
}

func TestCreatePlanExplicitRegionWins(t *testing.T) {
	p := newPlannerWithSources(t, "a")

	plan, err := p.CreatePlan(model.SearchQuery{
		Surname:    "Berg",
		BirthPlace: "Sweden",
		Region:     model.RegionGermany,
	}, 0, 60)
	require.NoError(t, err)
	assert.Equal(t, model.RegionGermany, plan.Region, "explicit region overrides inference")
}

func TestCreatePlanCanonicalizesExplicitRegion(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(&testutil.ScriptedSource{
		SourceName: "familysearch",
		Meta: model.SourceMetadata{
			Regions:     []model.Region{model.RegionUSA},
			RecordTypes: []string{"birth"},
		},
	}))
	p := planner.New(reg, testutil.Logger())

	plan, err := p.CreatePlan(model.SearchQuery{
		Surname: "Smith",
		Region:  "USA",
	}, 0, 60)
	require.NoError(t, err)

	assert.Equal(t, model.RegionUSA, plan.Region, "caller spelling mapped to the enum")
	require.Len(t, plan.SourceBudgets, 1)
	assert.GreaterOrEqual(t, plan.SourceBudgets[0].Priority, 2, "canonical region earns the region-match priority")

	// An unknown explicit region falls back to birth-place inference.
	plan, err = p.CreatePlan(model.SearchQuery{
		Surname:    "Smith",
		BirthPlace: "Boston, Massachusetts",
		Region:     "Atlantis",
	}, 0, 60)
	require.NoError(t, err)
	assert.Equal(t, model.RegionUSA, plan.Region)
}
