// Package domain contains core business entities and types for dry eye disease
// classification following the TFOS DEWS III guidelines.
//
// Reference: Tear Film & Ocular Surface Society, Dry Eye Workshop III Reports,
// June 2025 (diagnostic methodology and management/therapy reports).
package domain

import "errors"

// Subtype represents the dry eye disease subtype determined by the
// classification engine. Subtypes follow the TFOS DEWS III taxonomy:
// dry eye is driven by aqueous tear deficiency, excessive evaporation,
// or both. INDETERMINATE is a legitimate outcome, not an error: it means
// the measurements did not carry enough signal to commit to a subtype.
type Subtype string

const (
	AQUEOUS_DEFICIENT Subtype = "AQUEOUS_DEFICIENT"
	EVAPORATIVE       Subtype = "EVAPORATIVE"
	MIXED             Subtype = "MIXED"
	INDETERMINATE     Subtype = "INDETERMINATE"
)

// SeverityStage represents the overall disease stage (1-4) assigned by the
// severity stager. Stage 1 is mild/subclinical, stage 4 is severe.
type SeverityStage int

const (
	STAGE_1 SeverityStage = 1
	STAGE_2 SeverityStage = 2
	STAGE_3 SeverityStage = 3
	STAGE_4 SeverityStage = 4
)

// InterferencePattern represents a categorical lipid-layer interference
// observation from tear-film interferometry. The enumerated set follows the
// Guillon interferometry grading adopted by the guideline; anything outside
// this set must fail classification rather than default to a grade.
type InterferencePattern string

const (
	ABSENT          InterferencePattern = "ABSENT"
	OPEN_MESHWORK   InterferencePattern = "OPEN_MESHWORK"
	CLOSED_MESHWORK InterferencePattern = "CLOSED_MESHWORK"
	WAVE            InterferencePattern = "WAVE"
	AMORPHOUS       InterferencePattern = "AMORPHOUS"
	COLOR_FRINGE    InterferencePattern = "COLOR_FRINGE"
)

// StainingRegion represents an ocular surface region scored for vital dye
// staining. Region order matters for dominant-region tie-breaking:
// cornea > limbus > conjunctiva.
type StainingRegion string

const (
	CORNEA      StainingRegion = "CORNEA"
	LIMBUS      StainingRegion = "LIMBUS"
	CONJUNCTIVA StainingRegion = "CONJUNCTIVA"
)

// Axis identifies a diagnostic axis contributing to subtype voting and
// severity staging. The first four are always evaluated; schirmer,
// tear_meniscus and symptoms are evaluated only when the optional
// measurements are present.
type Axis string

const (
	AXIS_INTERFERENCE  Axis = "interference"
	AXIS_DROPOUT       Axis = "meibomian_dropout"
	AXIS_OSMOLARITY    Axis = "osmolarity"
	AXIS_TEAR_BREAKUP  Axis = "tear_breakup"
	AXIS_SCHIRMER      Axis = "schirmer"
	AXIS_TEAR_MENISCUS Axis = "tear_meniscus"
	AXIS_STAINING      Axis = "staining"
	AXIS_SYMPTOMS      Axis = "symptoms"
)

// AxisVote is the tagged outcome an axis contributes to subtype
// classification. Severity-only axes (staining, symptoms) always vote
// NEUTRAL; they influence staging but never subtype direction.
type AxisVote string

const (
	VOTE_AQUEOUS     AxisVote = "AQUEOUS"
	VOTE_EVAPORATIVE AxisVote = "EVAPORATIVE"
	VOTE_NEUTRAL     AxisVote = "NEUTRAL"
)

// Validation errors for clinical data integrity
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidSubtype = errors.New("invalid dry eye subtype")
	ErrInvalidStage   = errors.New("invalid severity stage")
	ErrInvalidRegion  = errors.New("invalid staining region")
	ErrInvalidVote    = errors.New("invalid axis vote")
)

// IsValid validates that the Subtype is one of the guideline taxonomy values.
func (s Subtype) IsValid() bool {
	switch s {
	case AQUEOUS_DEFICIENT, EVAPORATIVE, MIXED, INDETERMINATE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the subtype.
func (s Subtype) String() string {
	return string(s)
}

// ClinicalSignificance returns a human-readable description of the subtype
// for clinical reporting.
func (s Subtype) ClinicalSignificance() string {
	switch s {
	case AQUEOUS_DEFICIENT:
		return "Aqueous-deficient dry eye - reduced lacrimal tear production"
	case EVAPORATIVE:
		return "Evaporative dry eye - excessive tear film evaporation"
	case MIXED:
		return "Mixed-mechanism dry eye - combined aqueous deficiency and evaporation"
	case INDETERMINATE:
		return "Indeterminate - insufficient diagnostic signal, repeat measurement"
	default:
		return "Unknown subtype"
	}
}

// RequiresTreatment reports whether the subtype maps to therapeutic steps.
// An indeterminate subtype must never receive treatment recommendations.
func (s Subtype) RequiresTreatment() bool {
	switch s {
	case AQUEOUS_DEFICIENT, EVAPORATIVE, MIXED:
		return true
	default:
		return false
	}
}

// LogFields returns structured logging fields for audit trails.
func (s Subtype) LogFields() map[string]any {
	return map[string]any{
		"subtype":               string(s),
		"clinical_significance": s.ClinicalSignificance(),
		"is_valid":              s.IsValid(),
		"requires_treatment":    s.RequiresTreatment(),
	}
}

// IsValid validates the severity stage range.
func (st SeverityStage) IsValid() bool {
	return st >= STAGE_1 && st <= STAGE_4
}

// IsValid validates the interference pattern against the enumerated set.
func (p InterferencePattern) IsValid() bool {
	switch p {
	case ABSENT, OPEN_MESHWORK, CLOSED_MESHWORK, WAVE, AMORPHOUS, COLOR_FRINGE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the pattern.
func (p InterferencePattern) String() string {
	return string(p)
}

// IsValid validates the staining region against the enumerated set.
func (r StainingRegion) IsValid() bool {
	switch r {
	case CORNEA, LIMBUS, CONJUNCTIVA:
		return true
	default:
		return false
	}
}

// String returns the string representation of the region.
func (r StainingRegion) String() string {
	return string(r)
}

// IsValid validates the axis vote.
func (v AxisVote) IsValid() bool {
	switch v {
	case VOTE_AQUEOUS, VOTE_EVAPORATIVE, VOTE_NEUTRAL:
		return true
	default:
		return false
	}
}

// Definite reports whether the vote carries a subtype direction.
func (v AxisVote) Definite() bool {
	return v == VOTE_AQUEOUS || v == VOTE_EVAPORATIVE
}
