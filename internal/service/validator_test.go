package service

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func floatPtr(v float64) *float64 { return &v }

// validMeasurements returns a measurement set that passes validation and
// classifies as evaporative with the default cutoffs.
func validMeasurements() *domain.MeasurementSet {
	return &domain.MeasurementSet{
		ExamID:             "exam-001",
		Pattern:            domain.OPEN_MESHWORK,
		TearBreakupTimeSec: 12,
		OsmolarityMOsm:     300,
		MeibomianDropout:   45,
		Staining: []domain.RegionalStaining{
			{Region: domain.CORNEA, Density: 1, Extent: 1},
			{Region: domain.LIMBUS, Density: 0, Extent: 0},
			{Region: domain.CONJUNCTIVA, Density: 1, Extent: 0},
		},
	}
}

func TestValidator_AcceptsValidSet(t *testing.T) {
	v := NewValidator(testLogger())

	set, err := v.Validate(validMeasurements())
	require.NoError(t, err)
	assert.Equal(t, "exam-001", set.ExamID)
	assert.Equal(t, domain.OPEN_MESHWORK, set.Pattern)
	assert.Len(t, set.Staining, 3)
}

func TestValidator_NormalizesPatternAndRegionCase(t *testing.T) {
	v := NewValidator(testLogger())

	raw := validMeasurements()
	raw.Pattern = " open_meshwork "
	raw.Staining = []domain.RegionalStaining{{Region: "cornea", Density: 2, Extent: 1}}

	set, err := v.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.OPEN_MESHWORK, set.Pattern)
	assert.Equal(t, domain.CORNEA, set.Staining[0].Region)
}

func TestValidator_RejectsOutOfRangeFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.MeasurementSet)
		field  string
	}{
		{"missing pattern", func(m *domain.MeasurementSet) { m.Pattern = "" }, "interference_pattern"},
		{"negative breakup time", func(m *domain.MeasurementSet) { m.TearBreakupTimeSec = -1 }, "tear_breakup_time_sec"},
		{"breakup time beyond maximum", func(m *domain.MeasurementSet) { m.TearBreakupTimeSec = 61 }, "tear_breakup_time_sec"},
		{"zero osmolarity", func(m *domain.MeasurementSet) { m.OsmolarityMOsm = 0 }, "osmolarity_mosm"},
		{"osmolarity below physiological range", func(m *domain.MeasurementSet) { m.OsmolarityMOsm = 150 }, "osmolarity_mosm"},
		{"osmolarity above physiological range", func(m *domain.MeasurementSet) { m.OsmolarityMOsm = 500 }, "osmolarity_mosm"},
		{"dropout above 100", func(m *domain.MeasurementSet) { m.MeibomianDropout = 101 }, "meibomian_dropout_pct"},
		{"negative dropout", func(m *domain.MeasurementSet) { m.MeibomianDropout = -5 }, "meibomian_dropout_pct"},
		{"unknown staining region", func(m *domain.MeasurementSet) {
			m.Staining = []domain.RegionalStaining{{Region: "EYELID", Density: 1}}
		}, "staining.region"},
		{"staining density above scale", func(m *domain.MeasurementSet) {
			m.Staining = []domain.RegionalStaining{{Region: domain.CORNEA, Density: 6}}
		}, "staining.density"},
		{"staining extent above scale", func(m *domain.MeasurementSet) {
			m.Staining = []domain.RegionalStaining{{Region: domain.CORNEA, Density: 1, Extent: 4}}
		}, "staining.extent"},
		{"schirmer above maximum", func(m *domain.MeasurementSet) { m.SchirmerMM = floatPtr(40) }, "schirmer_mm"},
		{"negative meniscus height", func(m *domain.MeasurementSet) { m.MeniscusHeightMM = floatPtr(-0.1) }, "meniscus_height_mm"},
		{"osdi above 100", func(m *domain.MeasurementSet) { m.Symptoms = &domain.SymptomScores{OSDI: 101} }, "symptoms.osdi"},
		{"deq5 above 22", func(m *domain.MeasurementSet) { m.Symptoms = &domain.SymptomScores{DEQ5: 23} }, "symptoms.deq5"},
	}

	v := NewValidator(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validMeasurements()
			tt.mutate(raw)

			_, err := v.Validate(raw)
			require.Error(t, err)

			var valErr *domain.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.field, valErr.Field)
		})
	}
}

func TestValidator_NilSet(t *testing.T) {
	v := NewValidator(testLogger())

	_, err := v.Validate(nil)
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestValidator_DoesNotMutateInput(t *testing.T) {
	v := NewValidator(testLogger())

	raw := validMeasurements()
	raw.Pattern = "open_meshwork"

	_, err := v.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.InterferencePattern("open_meshwork"), raw.Pattern,
		"validator must return a normalized copy, not rewrite the caller's value")
}

func TestValidator_UnknownPatternPassesThrough(t *testing.T) {
	// Category membership belongs to the grader, which fails closed.
	v := NewValidator(testLogger())

	raw := validMeasurements()
	raw.Pattern = "RAINBOW"

	set, err := v.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.InterferencePattern("RAINBOW"), set.Pattern)
}
