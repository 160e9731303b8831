package algo

import (
	"math"
	"testing"

	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	r := schema.Range{Min: 1, Max: 10}
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"at min", 1, 0},
		{"below min", 0, 0},
		{"mid", 4, 3.0 / 9.0},
		{"at max", 10, 1},
		{"above max", 50, 1},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Normalize(tt.value, r), 1e-12)
		})
	}
}

// TestComputeRiskReferencePanel checks the worked example panel
// CA19_9=500, NLR=4, Albumin=3.5, Age=55.
func TestComputeRiskReferencePanel(t *testing.T) {
	profile := schema.DefaultClinicalProfile()
	risk, err := ComputeRisk(profile, 500, 4, 3.5, 55)
	require.NoError(t, err)

	assert.InDelta(t, 0.175, risk.Breakdown[schema.BreakdownCA199], 1e-9)
	assert.InDelta(t, 0.25/3.0, risk.Breakdown[schema.BreakdownNLR], 1e-9)
	assert.InDelta(t, 0.10, risk.Breakdown[schema.BreakdownAge], 1e-9)
	assert.InDelta(t, -0.10, risk.Breakdown[schema.BreakdownAlbumin], 1e-9)
	assert.InDelta(t, 0.258333, risk.Score, 1e-6)

	var sum float64
	for _, v := range risk.Breakdown {
		sum += v
	}
	assert.InDelta(t, risk.Score, sum, 1e-12)
}

func TestComputeRiskBounds(t *testing.T) {
	profile := schema.DefaultClinicalProfile()

	worst, err := ComputeRisk(profile, 5000, 20, 0, 95)
	require.NoError(t, err)
	assert.InDelta(t, 0.80, worst.Score, 1e-9)

	best, err := ComputeRisk(profile, 0, 1, 5, 30)
	require.NoError(t, err)
	assert.Equal(t, 0.0, best.Score, "protective albumin must not push the score below zero")
}

func TestComputeRiskMonotonic(t *testing.T) {
	profile := schema.DefaultClinicalProfile()
	base, err := ComputeRisk(profile, 200, 3, 3.5, 50)
	require.NoError(t, err)

	higher := []struct {
		name                string
		ca199, nlr, albumin float64
		age                 int
		expectNonDecreasing bool
	}{
		{"ca19_9 up", 600, 3, 3.5, 50, true},
		{"nlr up", 200, 7, 3.5, 50, true},
		{"age up", 200, 3, 3.5, 70, true},
		{"albumin up", 200, 3, 4.5, 50, false},
	}
	for _, tt := range higher {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeRisk(profile, tt.ca199, tt.nlr, tt.albumin, tt.age)
			require.NoError(t, err)
			if tt.expectNonDecreasing {
				assert.GreaterOrEqual(t, got.Score, base.Score)
			} else {
				assert.LessOrEqual(t, got.Score, base.Score)
			}
		})
	}
}

func TestComputeRiskInvalidInput(t *testing.T) {
	profile := schema.DefaultClinicalProfile()
	tests := []struct {
		name                string
		ca199, nlr, albumin float64
		age                 int
	}{
		{"negative ca19_9", -1, 4, 3.5, 55},
		{"nan nlr", 500, math.NaN(), 3.5, 55},
		{"inf albumin", 500, 4, math.Inf(1), 55},
		{"negative age", 500, 4, 3.5, -2},
		{"age above maximum", 500, 4, 3.5, schema.MaxAge + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeRisk(profile, tt.ca199, tt.nlr, tt.albumin, tt.age)
			assert.ErrorIs(t, err, schema.ErrInvalidInput)
		})
	}
}

func TestComputeRiskCustomProfile(t *testing.T) {
	profile := schema.DefaultClinicalProfile()
	profile.Weights[schema.BreakdownCA199] = 1.0
	profile.Weights[schema.BreakdownNLR] = 0
	profile.Weights[schema.BreakdownAge] = 0
	profile.Weights[schema.BreakdownAlbumin] = 0

	risk, err := ComputeRisk(profile, 250, 4, 3.5, 55)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, risk.Score, 1e-12)
}

func TestProjectSurvival(t *testing.T) {
	profile := schema.DefaultClinicalProfile()
	tests := []struct {
		name     string
		stage    schema.Stage
		risk     float64
		expected string
		months   float64
	}{
		{"stage 1 no risk", schema.Stage1, 0, "Estimated survival: 2.0 years (personalized based on lab risk profile).", 24},
		{"stage 1 full risk", schema.Stage1, 1, "Estimated survival: 1.2 years (personalized based on lab risk profile).", 14.4},
		{"stage 2 boundary is years", schema.Stage2, 0, "Estimated survival: 1.0 years (personalized based on lab risk profile).", 12},
		{"stage 2 reference panel", schema.Stage2, 0.2983, "Estimated survival: 11 months (personalized based on lab risk profile).", 10.56816},
		{"stage 3", schema.Stage3, 0.5, "Estimated survival: 5 months (personalized based on lab risk profile).", 4.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProjectSurvival(profile, tt.stage, tt.risk)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Text)
			require.NotNil(t, got.Months)
			assert.InDelta(t, tt.months, *got.Months, 1e-9)
		})
	}
}

func TestProjectSurvivalNormalIgnoresRisk(t *testing.T) {
	profile := schema.DefaultClinicalProfile()
	for _, risk := range []float64{0, 0.5, 1, -4, math.NaN()} {
		got, err := ProjectSurvival(profile, schema.StageNormal, risk)
		require.NoError(t, err)
		assert.Equal(t, "No cancer detected — normal condition.", got.Text)
		assert.Nil(t, got.Months)
	}
}

func TestProjectSurvivalErrors(t *testing.T) {
	profile := schema.DefaultClinicalProfile()

	_, err := ProjectSurvival(profile, schema.Stage("Stage 9"), 0.3)
	assert.ErrorIs(t, err, schema.ErrUnknownStage)

	_, err = ProjectSurvival(profile, schema.Stage2, 1.5)
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
}

func TestFormatSurvivalBoundary(t *testing.T) {
	assert.Equal(t, "Estimated survival: 1.0 years (personalized based on lab risk profile).", FormatSurvival(12.0, 12))
	assert.Equal(t, "Estimated survival: 12 months (personalized based on lab risk profile).", FormatSurvival(11.999, 12))
	assert.Equal(t, "Estimated survival: 0 months (personalized based on lab risk profile).", FormatSurvival(0.4, 12))
}

func TestRecommendations(t *testing.T) {
	profile := schema.DefaultClinicalProfile()

	first, err := Recommendations(profile, schema.Stage1)
	require.NoError(t, err)
	second, err := Recommendations(profile, schema.Stage1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{
		"Immediate consultation with oncologist",
		"Surgical resection often possible",
		"Consider chemotherapy after surgery",
		"Maintain nutrition & regular follow-ups",
	}, first)

	// Callers cannot mutate the profile through the returned slice.
	first[0] = "changed"
	again, err := Recommendations(profile, schema.Stage1)
	require.NoError(t, err)
	assert.Equal(t, "Immediate consultation with oncologist", again[0])

	_, err = Recommendations(profile, schema.Stage("Stage 9"))
	assert.ErrorIs(t, err, schema.ErrUnknownStage)
}

func TestRankByRisk(t *testing.T) {
	preds := []schema.EnrichedPrediction{
		{Row: 1, RiskScore: 20},
		{Row: 2, RiskScore: 85},
		{Row: 3, RiskScore: 0},
		{Row: 4, RiskScore: 85},
	}

	ranked := RankByRisk(preds, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, 2, ranked[0].Row)
	assert.Equal(t, 4, ranked[1].Row)
	assert.Equal(t, 1, ranked[2].Row)

	assert.Len(t, RankByRisk(preds, 0), 4)
}
