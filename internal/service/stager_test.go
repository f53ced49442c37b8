package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

func stagerInput(mutate func(*domain.MeasurementSet)) axisInput {
	m := &domain.MeasurementSet{
		Pattern:            domain.COLOR_FRINGE,
		TearBreakupTimeSec: 15,
		OsmolarityMOsm:     295,
		MeibomianDropout:   10,
	}
	if mutate != nil {
		mutate(m)
	}
	grade := domain.InterferenceGrade{Grade: 4, Pattern: m.Pattern}
	return axisInput{measurements: m, grade: grade}
}

func TestSeverityStager_WorstAxisDominance(t *testing.T) {
	s := NewSeverityStager(testLogger())

	tests := []struct {
		name    string
		subtype domain.Subtype
		input   axisInput
		want    domain.SeverityStage
	}{
		{
			name:    "all axes normal",
			subtype: domain.AQUEOUS_DEFICIENT,
			input:   stagerInput(nil),
			want:    domain.STAGE_1,
		},
		{
			name:    "single severely abnormal axis dominates",
			subtype: domain.AQUEOUS_DEFICIENT,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.OsmolarityMOsm = 330
			}),
			want: domain.STAGE_4,
		},
		{
			name:    "osmolarity exactly at stage 2 threshold stages as 2",
			subtype: domain.AQUEOUS_DEFICIENT,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.OsmolarityMOsm = 308
			}),
			want: domain.STAGE_2,
		},
		{
			name:    "breakup time exactly at stage 3 threshold stages as 3",
			subtype: domain.AQUEOUS_DEFICIENT,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.TearBreakupTimeSec = 5
			}),
			want: domain.STAGE_3,
		},
		{
			name:    "worst of several abnormal axes wins",
			subtype: domain.MIXED,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.OsmolarityMOsm = 310   // stage 2
				m.TearBreakupTimeSec = 4 // stage 3
				m.MeibomianDropout = 70  // stage 4
			}),
			want: domain.STAGE_4,
		},
		{
			name:    "dropout ignored for aqueous-deficient subtype",
			subtype: domain.AQUEOUS_DEFICIENT,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.MeibomianDropout = 90
			}),
			want: domain.STAGE_1,
		},
		{
			name:    "osmolarity ignored for evaporative subtype",
			subtype: domain.EVAPORATIVE,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.OsmolarityMOsm = 330
			}),
			want: domain.STAGE_1,
		},
		{
			name:    "optional schirmer drives staging when present",
			subtype: domain.AQUEOUS_DEFICIENT,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.SchirmerMM = floatPtr(2)
			}),
			want: domain.STAGE_4,
		},
		{
			name:    "indeterminate stages against the mixed table",
			subtype: domain.INDETERMINATE,
			input: stagerInput(func(m *domain.MeasurementSet) {
				m.MeibomianDropout = 70
			}),
			want: domain.STAGE_4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Stage(tt.subtype, tt.input))
		})
	}
}

func TestSeverityStager_StainingCompositeBoundaries(t *testing.T) {
	s := NewSeverityStager(testLogger())

	tests := []struct {
		composite float64
		want      domain.SeverityStage
	}{
		{3.9, domain.STAGE_1},
		{4, domain.STAGE_2},
		{6.9, domain.STAGE_2},
		{7, domain.STAGE_3},
		{10, domain.STAGE_4},
		{15, domain.STAGE_4},
	}

	for _, tt := range tests {
		in := stagerInput(nil)
		in.staining = &domain.StainingScore{Composite: tt.composite, DominantRegion: domain.CORNEA, Complete: true}
		assert.Equal(t, tt.want, s.Stage(domain.MIXED, in), "composite %.1f", tt.composite)
	}
}

func TestSeverityStager_GradeStaging(t *testing.T) {
	s := NewSeverityStager(testLogger())

	tests := []struct {
		grade int
		want  domain.SeverityStage
	}{
		{4, domain.STAGE_1},
		{3, domain.STAGE_1},
		{2, domain.STAGE_2},
		{1, domain.STAGE_3},
		{0, domain.STAGE_4},
	}

	for _, tt := range tests {
		in := stagerInput(nil)
		in.grade = domain.InterferenceGrade{Grade: tt.grade, Pattern: domain.AMORPHOUS}
		assert.Equal(t, tt.want, s.Stage(domain.EVAPORATIVE, in), "grade %d", tt.grade)
	}
}
