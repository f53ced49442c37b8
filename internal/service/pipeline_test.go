package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

func newTestService(t *testing.T) *AssessmentService {
	t.Helper()
	svc, err := NewAssessmentService(guideline.DefaultCutoffs(), 0, testLogger())
	require.NoError(t, err)
	return svc
}

// evaporativeExam has abnormal interference grade and gland dropout with
// normal osmolarity and breakup time.
func evaporativeExam() *domain.MeasurementSet {
	return &domain.MeasurementSet{
		ExamID:             "exam-evap",
		Pattern:            domain.OPEN_MESHWORK,
		TearBreakupTimeSec: 12,
		OsmolarityMOsm:     300,
		MeibomianDropout:   45,
		Staining: []domain.RegionalStaining{
			{Region: domain.CORNEA, Density: 1},
		},
	}
}

// aqueousExam has abnormal osmolarity and breakup time with a healthy lipid
// layer and no gland dropout.
func aqueousExam() *domain.MeasurementSet {
	return &domain.MeasurementSet{
		ExamID:             "exam-aq",
		Pattern:            domain.COLOR_FRINGE,
		TearBreakupTimeSec: 4,
		OsmolarityMOsm:     320,
		MeibomianDropout:   5,
		Staining: []domain.RegionalStaining{
			{Region: domain.CORNEA, Density: 1},
		},
	}
}

func TestAssessExam_Evaporative(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.AssessExam(context.Background(), evaporativeExam())
	require.NoError(t, err)

	assert.Equal(t, domain.EVAPORATIVE, result.Classification.Subtype)
	assert.Contains(t, result.Classification.ContributingFactors, domain.AXIS_INTERFERENCE)
	assert.Contains(t, result.Classification.ContributingFactors, domain.AXIS_DROPOUT)
	assert.NotEmpty(t, result.Plan.Steps)
	assert.False(t, result.Plan.RepeatMeasurement)
}

func TestAssessExam_ConflictingAxesResolveToAqueous(t *testing.T) {
	// Osmolarity and breakup time abnormal, grade and dropout normal:
	// the result must be aqueous-deficient, not mixed, not indeterminate.
	svc := newTestService(t)

	result, err := svc.AssessExam(context.Background(), aqueousExam())
	require.NoError(t, err)

	assert.Equal(t, domain.AQUEOUS_DEFICIENT, result.Classification.Subtype)
	assert.Contains(t, result.Classification.ContributingFactors, domain.AXIS_OSMOLARITY)
	assert.Contains(t, result.Classification.ContributingFactors, domain.AXIS_TEAR_BREAKUP)
	assert.NotContains(t, result.Classification.ContributingFactors, domain.AXIS_INTERFERENCE)
	assert.NotContains(t, result.Classification.ContributingFactors, domain.AXIS_DROPOUT)
}

func TestAssessExam_MixedWhenBothDirectionsAbnormal(t *testing.T) {
	svc := newTestService(t)

	exam := aqueousExam()
	exam.MeibomianDropout = 60
	exam.Pattern = domain.ABSENT

	result, err := svc.AssessExam(context.Background(), exam)
	require.NoError(t, err)
	assert.Equal(t, domain.MIXED, result.Classification.Subtype)
}

func TestAssessExam_SingleAbnormalAxisIsIndeterminate(t *testing.T) {
	svc := newTestService(t)

	exam := &domain.MeasurementSet{
		ExamID:             "exam-single",
		Pattern:            domain.COLOR_FRINGE,
		TearBreakupTimeSec: 12,
		OsmolarityMOsm:     320,
		MeibomianDropout:   5,
		Staining: []domain.RegionalStaining{
			{Region: domain.CORNEA, Density: 1},
		},
	}

	result, err := svc.AssessExam(context.Background(), exam)
	require.NoError(t, err)

	assert.Equal(t, domain.INDETERMINATE, result.Classification.Subtype)
	assert.True(t, result.Plan.RepeatMeasurement)
	assert.Equal(t, guideline.IndeterminatePlan, result.Plan.Steps)
}

func TestAssessExam_EmptyStainingStopsPipeline(t *testing.T) {
	// An exam without any staining observations must fail at the scorer
	// rather than classify on the remaining axes.
	svc := newTestService(t)

	exam := evaporativeExam()
	exam.Staining = nil

	result, err := svc.AssessExam(context.Background(), exam)
	require.Error(t, err)
	assert.Nil(t, result)

	var insErr *domain.InsufficientDataError
	require.ErrorAs(t, err, &insErr)
}

func TestValidateOnly_EmptyStaining(t *testing.T) {
	svc := newTestService(t)

	exam := evaporativeExam()
	exam.Staining = []domain.RegionalStaining{}

	err := svc.ValidateOnly(exam)
	require.Error(t, err)

	var insErr *domain.InsufficientDataError
	require.ErrorAs(t, err, &insErr)
}

func TestAssessExam_UnknownPatternProducesNoResult(t *testing.T) {
	svc := newTestService(t)

	exam := evaporativeExam()
	exam.Pattern = "RAINBOW"

	result, err := svc.AssessExam(context.Background(), exam)
	require.Error(t, err)
	assert.Nil(t, result)

	var patErr *domain.UnclassifiablePatternError
	require.ErrorAs(t, err, &patErr)
}

func TestAssessExam_ValidationFailureStopsPipeline(t *testing.T) {
	svc := newTestService(t)

	exam := evaporativeExam()
	exam.OsmolarityMOsm = -10

	result, err := svc.AssessExam(context.Background(), exam)
	require.Error(t, err)
	assert.Nil(t, result)

	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestAssessExam_Idempotent(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.AssessExam(context.Background(), evaporativeExam())
	require.NoError(t, err)
	second, err := svc.AssessExam(context.Background(), evaporativeExam())
	require.NoError(t, err)

	assert.Equal(t, first.Classification.Subtype, second.Classification.Subtype)
	assert.Equal(t, first.Classification.SeverityStage, second.Classification.SeverityStage)
	assert.Equal(t, first.Classification.ContributingFactors, second.Classification.ContributingFactors)
	assert.Equal(t, first.Classification.Signals, second.Classification.Signals)
	assert.Equal(t, first.Plan.Steps, second.Plan.Steps)
}

func TestAssessExam_AssignsExamIDWhenMissing(t *testing.T) {
	svc := newTestService(t)

	exam := evaporativeExam()
	exam.ExamID = ""

	result, err := svc.AssessExam(context.Background(), exam)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Classification.ExamID)
}

func TestAssessExam_CancelledContext(t *testing.T) {
	svc := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AssessExam(ctx, evaporativeExam())
	require.ErrorIs(t, err, context.Canceled)
}

func TestAssessExam_StainingContributesAntiInflammatoryStep(t *testing.T) {
	svc := newTestService(t)

	exam := evaporativeExam()
	exam.Staining = []domain.RegionalStaining{
		{Region: domain.CORNEA, Density: 3, Extent: 2},
		{Region: domain.LIMBUS, Density: 2, Extent: 0},
		{Region: domain.CONJUNCTIVA, Density: 2, Extent: 0},
	}

	result, err := svc.AssessExam(context.Background(), exam)
	require.NoError(t, err)

	require.True(t, result.Classification.HasFactor(domain.AXIS_STAINING))
	assert.Equal(t, guideline.AntiInflammatoryModifier, result.Plan.Steps[len(result.Plan.Steps)-1])
}
