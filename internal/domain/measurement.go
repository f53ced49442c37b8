package domain

import (
	"time"
)

// Physiological plausibility bounds used by the measurement validator.
// Values outside these ranges fail validation; they are never clamped.
const (
	MaxTearBreakupTimeSec = 60.0
	MinOsmolarityMOsm     = 200.0
	MaxOsmolarityMOsm     = 450.0
	MaxMeibomianDropout   = 100.0
	MaxSchirmerMM         = 35.0
	MaxMeniscusHeightMM   = 1.5
	MaxOSDIScore          = 100.0
	MaxDEQ5Score          = 22.0
	MaxStainingDensity    = 5
	MaxStainingExtent     = 3
)

// RegionalStaining is a single vital-dye staining observation for one
// ocular surface region. Density follows the 0-5 ordinal panel grading;
// extent records how much of the region is involved (0-3).
type RegionalStaining struct {
	Region  StainingRegion `json:"region"`
	Density int            `json:"density"`
	Extent  int            `json:"extent"`
}

// SymptomScores holds the optional patient-reported symptom questionnaires.
type SymptomScores struct {
	OSDI float64 `json:"osdi"` // Ocular Surface Disease Index, 0-100
	DEQ5 float64 `json:"deq5"` // Dry Eye Questionnaire-5, 0-22
}

// MeasurementSet is the immutable per-exam input to the classification
// pipeline. It holds already-quantified measurements; the engine never
// reads raw images. Optional fields are nil when the corresponding test
// was not performed - absent measurements never vote and never stage.
type MeasurementSet struct {
	ExamID string `json:"exam_id"`

	// Tear film measurements
	Pattern            InterferencePattern `json:"interference_pattern"`
	TearBreakupTimeSec float64             `json:"tear_breakup_time_sec"`
	OsmolarityMOsm     float64             `json:"osmolarity_mosm"`
	MeibomianDropout   float64             `json:"meibomian_dropout_pct"`

	// Ocular surface staining, ordered as observed. At least one
	// observation is required for an exam to be assessable.
	Staining []RegionalStaining `json:"staining"`

	// Optional auxiliary measurements
	SchirmerMM       *float64       `json:"schirmer_mm,omitempty"`
	MeniscusHeightMM *float64       `json:"meniscus_height_mm,omitempty"`
	Symptoms         *SymptomScores `json:"symptoms,omitempty"`

	CollectedAt time.Time `json:"collected_at,omitempty"`
}

// InterferenceGrade is the ordinal lipid-layer grade (0-4) derived once per
// MeasurementSet from the categorical interference pattern. Higher grades
// indicate a thicker, healthier lipid layer.
type InterferenceGrade struct {
	Grade   int                 `json:"grade"`
	Pattern InterferencePattern `json:"pattern"`
}

// StainingScore is the composite ocular surface staining score derived once
// per MeasurementSet. Composite is the weighted regional sum (0-15 on the
// summed panel scale). DominantRegion is the region driving the score;
// equal regional values resolve by the fixed priority
// cornea > limbus > conjunctiva. Complete is false when one or more
// peripheral regions were not reported - the guideline scale tolerates
// partial coverage, but callers must be able to see it.
type StainingScore struct {
	Composite      float64        `json:"composite"`
	DominantRegion StainingRegion `json:"dominant_region"`
	Complete       bool           `json:"complete"`
}
