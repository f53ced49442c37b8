// Package guideline holds the TFOS DEWS III decision tables as explicit
// immutable data: interference pattern grading, staining region weights and
// priority, subtype-specific severity thresholds, and the treatment plan
// table. Keeping these as data rather than control flow lets them be tested
// exhaustively and substituted when the guideline revises.
//
// Numeric cutoffs are sourced from the published TFOS DEWS III diagnostic
// methodology and management reports (2025 edition).
package guideline

import (
	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

// GradingScaleMax is the top of the ordinal interference grade scale.
const GradingScaleMax = 4

// patternGrades maps each enumerated interference pattern to its ordinal
// lipid-layer grade. Higher grades indicate a thicker, healthier lipid
// layer (Guillon interferometry grading).
var patternGrades = map[domain.InterferencePattern]int{
	domain.ABSENT:          0,
	domain.OPEN_MESHWORK:   1,
	domain.CLOSED_MESHWORK: 2,
	domain.WAVE:            3,
	domain.AMORPHOUS:       3,
	domain.COLOR_FRINGE:    4,
}

// GradeFor returns the ordinal grade for a pattern. The second return value
// is false for categories outside the enumerated set; callers must fail
// closed in that case, never default.
func GradeFor(p domain.InterferencePattern) (int, bool) {
	g, ok := patternGrades[p]
	return g, ok
}

// PatternCount returns how many pattern categories the grading table covers.
func PatternCount() int {
	return len(patternGrades)
}

// RegionWeights are the fixed per-region weights for the composite staining
// score. The summed panel scale weighs all three regions equally (0-5 each,
// composite 0-15); the table exists so a revised edition can re-weight
// without touching the scorer.
var RegionWeights = map[domain.StainingRegion]float64{
	domain.CORNEA:      1.0,
	domain.LIMBUS:      1.0,
	domain.CONJUNCTIVA: 1.0,
}

// RegionPriority is the fixed tie-break order for the dominant staining
// region: cornea > limbus > conjunctiva.
var RegionPriority = []domain.StainingRegion{
	domain.CORNEA,
	domain.LIMBUS,
	domain.CONJUNCTIVA,
}

// Cutoffs are the normal-range boundaries the axis evaluators vote against.
type Cutoffs struct {
	// Osmolarity in mOsm/L; abnormal at or above the cutoff.
	Osmolarity float64
	// Tear breakup time in seconds; abnormal below the cutoff.
	TearBreakup float64
	// Meibomian gland dropout percentage; abnormal at or above the cutoff.
	Dropout float64
	// Interference grade; abnormal at or below the cutoff.
	Grade int
	// Schirmer wetting in mm/5min; abnormal below the cutoff.
	Schirmer float64
	// Tear meniscus height in mm; abnormal below the cutoff.
	Meniscus float64
	// Composite staining score; abnormal at or above the cutoff.
	Staining float64
	// OSDI symptom score; abnormal at or above the cutoff.
	OSDI float64
	// DEQ-5 symptom score; abnormal above the cutoff.
	DEQ5 float64
}

// DefaultCutoffs returns the published TFOS DEWS III normal-range cutoffs.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{
		Osmolarity:  308,
		TearBreakup: 10,
		Dropout:     33,
		Grade:       1,
		Schirmer:    10,
		Meniscus:    0.2,
		Staining:    4,
		OSDI:        23,
		DEQ5:        6,
	}
}

// Direction tells the stager which side of a threshold is diseased.
type Direction string

const (
	HigherWorse Direction = "HIGHER_WORSE"
	LowerWorse  Direction = "LOWER_WORSE"
)

// StageRule maps one diagnostic axis to its stage thresholds for a subtype.
// Boundaries are inclusive toward the higher stage: a value exactly at a
// threshold is assigned the higher stage.
type StageRule struct {
	Axis      domain.Axis
	Direction Direction
	Stage2    float64
	Stage3    float64
	Stage4    float64
}

// StageFor applies the inclusive-upper convention to a measured value.
func (r StageRule) StageFor(v float64) domain.SeverityStage {
	switch r.Direction {
	case HigherWorse:
		switch {
		case v >= r.Stage4:
			return domain.STAGE_4
		case v >= r.Stage3:
			return domain.STAGE_3
		case v >= r.Stage2:
			return domain.STAGE_2
		}
	case LowerWorse:
		switch {
		case v <= r.Stage4:
			return domain.STAGE_4
		case v <= r.Stage3:
			return domain.STAGE_3
		case v <= r.Stage2:
			return domain.STAGE_2
		}
	}
	return domain.STAGE_1
}

// Per-axis stage rules shared between subtype tables.
var (
	osmolarityRule = StageRule{Axis: domain.AXIS_OSMOLARITY, Direction: HigherWorse, Stage2: 308, Stage3: 316, Stage4: 328}
	breakupRule    = StageRule{Axis: domain.AXIS_TEAR_BREAKUP, Direction: LowerWorse, Stage2: 7, Stage3: 5, Stage4: 2}
	schirmerRule   = StageRule{Axis: domain.AXIS_SCHIRMER, Direction: LowerWorse, Stage2: 10, Stage3: 5, Stage4: 2}
	meniscusRule   = StageRule{Axis: domain.AXIS_TEAR_MENISCUS, Direction: LowerWorse, Stage2: 0.2, Stage3: 0.15, Stage4: 0.1}
	gradeRule      = StageRule{Axis: domain.AXIS_INTERFERENCE, Direction: LowerWorse, Stage2: 2, Stage3: 1, Stage4: 0}
	dropoutRule    = StageRule{Axis: domain.AXIS_DROPOUT, Direction: HigherWorse, Stage2: 33, Stage3: 50, Stage4: 66}
	stainingRule   = StageRule{Axis: domain.AXIS_STAINING, Direction: HigherWorse, Stage2: 4, Stage3: 7, Stage4: 10}
	symptomsRule   = StageRule{Axis: domain.AXIS_SYMPTOMS, Direction: HigherWorse, Stage2: 23, Stage3: 33, Stage4: 51}
)

// SeverityTables holds the subtype-specific threshold tables. Severity is
// the maximum stage implied by any single rule whose axis was measured
// (worst-axis dominance): averaging could mask a severely abnormal single
// indicator.
var SeverityTables = map[domain.Subtype][]StageRule{
	domain.AQUEOUS_DEFICIENT: {
		osmolarityRule,
		breakupRule,
		schirmerRule,
		meniscusRule,
		stainingRule,
		symptomsRule,
	},
	domain.EVAPORATIVE: {
		gradeRule,
		dropoutRule,
		breakupRule,
		stainingRule,
		symptomsRule,
	},
	domain.MIXED: {
		osmolarityRule,
		breakupRule,
		schirmerRule,
		meniscusRule,
		gradeRule,
		dropoutRule,
		stainingRule,
		symptomsRule,
	},
}
