package service

import (
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

// SeverityStager assigns the overall disease stage using worst-axis
// dominance: the stage is the maximum implied by any single axis under the
// subtype's threshold table. Averaging is deliberately avoided because it
// would mask a severely abnormal single indicator.
type SeverityStager struct {
	logger *logrus.Logger
}

// NewSeverityStager creates a new severity stager.
func NewSeverityStager(logger *logrus.Logger) *SeverityStager {
	return &SeverityStager{logger: logger}
}

// axisValue extracts the numeric observation for a staging axis. ok=false
// means the axis has no usable input for this exam and is skipped.
func axisValue(axis domain.Axis, in axisInput) (float64, bool) {
	switch axis {
	case domain.AXIS_OSMOLARITY:
		return in.measurements.OsmolarityMOsm, true
	case domain.AXIS_TEAR_BREAKUP:
		return in.measurements.TearBreakupTimeSec, true
	case domain.AXIS_DROPOUT:
		return in.measurements.MeibomianDropout, true
	case domain.AXIS_INTERFERENCE:
		return float64(in.grade.Grade), true
	case domain.AXIS_SCHIRMER:
		if in.measurements.SchirmerMM == nil {
			return 0, false
		}
		return *in.measurements.SchirmerMM, true
	case domain.AXIS_TEAR_MENISCUS:
		if in.measurements.MeniscusHeightMM == nil {
			return 0, false
		}
		return *in.measurements.MeniscusHeightMM, true
	case domain.AXIS_STAINING:
		if in.staining == nil {
			return 0, false
		}
		return in.staining.Composite, true
	case domain.AXIS_SYMPTOMS:
		if in.measurements.Symptoms == nil {
			return 0, false
		}
		// OSDI drives symptom staging; DEQ-5 feeds the axis vote only.
		return in.measurements.Symptoms.OSDI, true
	default:
		return 0, false
	}
}

// Stage computes the severity stage for the classified subtype. An
// indeterminate subtype is staged against the mixed table since it has no
// table of its own; the stage still reflects measurement severity even when
// the mechanism is unresolved.
func (s *SeverityStager) Stage(subtype domain.Subtype, in axisInput) domain.SeverityStage {
	tableKey := subtype
	if subtype == domain.INDETERMINATE {
		tableKey = domain.MIXED
	}

	rules := guideline.SeverityTables[tableKey]
	worst := domain.STAGE_1
	var worstAxis domain.Axis

	for _, rule := range rules {
		value, ok := axisValue(rule.Axis, in)
		if !ok {
			continue
		}
		stage := rule.StageFor(value)
		if stage > worst {
			worst = stage
			worstAxis = rule.Axis
		}
	}

	s.logger.WithFields(logrus.Fields{
		"subtype":    subtype.String(),
		"stage":      int(worst),
		"worst_axis": string(worstAxis),
	}).Debug("Severity staged by worst-axis dominance")

	return worst
}
