package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

func classification(subtype domain.Subtype, stage domain.SeverityStage, factors ...domain.Axis) *domain.ClassificationResult {
	return &domain.ClassificationResult{
		ExamID:              "exam-001",
		Subtype:             subtype,
		SeverityStage:       stage,
		ContributingFactors: factors,
		ClassifiedAt:        time.Now().UTC(),
		EngineVersion:       EngineVersion,
	}
}

func TestRecommender_TherapeuticPlansMatchTables(t *testing.T) {
	r, err := NewRecommender(0, testLogger())
	require.NoError(t, err)

	for _, subtype := range []domain.Subtype{domain.AQUEOUS_DEFICIENT, domain.EVAPORATIVE, domain.MIXED} {
		for _, stage := range []domain.SeverityStage{domain.STAGE_1, domain.STAGE_2, domain.STAGE_3, domain.STAGE_4} {
			plan, err := r.Recommend(classification(subtype, stage))
			require.NoError(t, err)

			expected, ok := guideline.PlanFor(subtype, stage)
			require.True(t, ok)
			assert.Equal(t, expected, plan.Steps)
			assert.Equal(t, subtype, plan.Subtype)
			assert.Equal(t, stage, plan.SeverityStage)
			assert.False(t, plan.RepeatMeasurement)
		}
	}
}

func TestRecommender_IndeterminateNeverTherapeutic(t *testing.T) {
	r, err := NewRecommender(0, testLogger())
	require.NoError(t, err)

	plan, err := r.Recommend(classification(domain.INDETERMINATE, domain.STAGE_2))
	require.NoError(t, err)

	assert.True(t, plan.RepeatMeasurement)
	assert.Equal(t, guideline.IndeterminatePlan, plan.Steps)
	for _, step := range plan.Steps {
		assert.Equal(t, "DEWS3-DX-REPEAT", step.Citation)
	}
}

func TestRecommender_StainingFactorAppendsAntiInflammatory(t *testing.T) {
	r, err := NewRecommender(0, testLogger())
	require.NoError(t, err)

	without, err := r.Recommend(classification(domain.EVAPORATIVE, domain.STAGE_2, domain.AXIS_DROPOUT))
	require.NoError(t, err)
	with, err := r.Recommend(classification(domain.EVAPORATIVE, domain.STAGE_2, domain.AXIS_DROPOUT, domain.AXIS_STAINING))
	require.NoError(t, err)

	assert.Len(t, with.Steps, len(without.Steps)+1)
	assert.Equal(t, guideline.AntiInflammatoryModifier, with.Steps[len(with.Steps)-1])
	assert.NotContains(t, without.Steps, guideline.AntiInflammatoryModifier)
}

func TestRecommender_CacheIsIdempotent(t *testing.T) {
	r, err := NewRecommender(4, testLogger())
	require.NoError(t, err)

	first, err := r.Recommend(classification(domain.MIXED, domain.STAGE_3))
	require.NoError(t, err)
	second, err := r.Recommend(classification(domain.MIXED, domain.STAGE_3))
	require.NoError(t, err)

	assert.Equal(t, first.Steps, second.Steps)
}

func TestRecommender_NilResult(t *testing.T) {
	r, err := NewRecommender(0, testLogger())
	require.NoError(t, err)

	_, err = r.Recommend(nil)
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
}
