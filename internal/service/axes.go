package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

// axisInput bundles everything an axis evaluator may inspect: the validated
// measurements plus the derived grade and staining score.
type axisInput struct {
	measurements *domain.MeasurementSet
	grade        domain.InterferenceGrade
	staining     *domain.StainingScore
}

// axisEvaluator produces the signal for one diagnostic axis. Evaluators that
// depend on optional measurements return ok=false when their input is absent
// so missing data never masquerades as a normal finding.
type axisEvaluator func(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool)

// AxisEngine evaluates every diagnostic axis against guideline cutoffs in a
// fixed registration order, mirroring how clinicians document findings.
// Registration order determines the order of signals in the result, which
// keeps assessments byte-for-byte reproducible.
type AxisEngine struct {
	cutoffs    guideline.Cutoffs
	evaluators []axisEvaluator
	logger     *logrus.Logger
}

// NewAxisEngine creates an axis engine with the supplied cutoffs.
func NewAxisEngine(cutoffs guideline.Cutoffs, logger *logrus.Logger) *AxisEngine {
	engine := &AxisEngine{cutoffs: cutoffs, logger: logger}
	engine.evaluators = []axisEvaluator{
		evaluateInterference,
		evaluateDropout,
		evaluateOsmolarity,
		evaluateTearBreakup,
		evaluateSchirmer,
		evaluateMeniscus,
		evaluateStaining,
		evaluateSymptoms,
	}
	return engine
}

// Evaluate runs every registered axis against the input and returns the
// signals in registration order. Axes whose inputs are absent are omitted
// entirely rather than reported as normal.
func (e *AxisEngine) Evaluate(in axisInput) []domain.AxisSignal {
	signals := make([]domain.AxisSignal, 0, len(e.evaluators))
	for _, evaluate := range e.evaluators {
		signal, ok := evaluate(e.cutoffs, in)
		if !ok {
			continue
		}
		signals = append(signals, signal)
	}

	e.logger.WithFields(logrus.Fields{
		"exam_id":     in.measurements.ExamID,
		"axis_count":  len(signals),
		"axes_voting": abnormalCount(signals),
	}).Debug("Diagnostic axes evaluated")

	return signals
}

func abnormalCount(signals []domain.AxisSignal) int {
	n := 0
	for _, s := range signals {
		if s.Abnormal {
			n++
		}
	}
	return n
}

func evaluateInterference(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	abnormal := in.grade.Grade <= cutoffs.Grade
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_INTERFERENCE,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("grade %d (%s)", in.grade.Grade, in.grade.Pattern.String()),
	}
	if abnormal {
		signal.Vote = domain.VOTE_EVAPORATIVE
		signal.Rationale = fmt.Sprintf("lipid layer grade %d at or below cutoff %d indicates lipid deficiency", in.grade.Grade, cutoffs.Grade)
	} else {
		signal.Rationale = fmt.Sprintf("lipid layer grade %d above cutoff %d", in.grade.Grade, cutoffs.Grade)
	}
	return signal, true
}

func evaluateDropout(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	dropout := in.measurements.MeibomianDropout
	abnormal := dropout >= cutoffs.Dropout
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_DROPOUT,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("%.1f%% gland dropout", dropout),
	}
	if abnormal {
		signal.Vote = domain.VOTE_EVAPORATIVE
		signal.Rationale = fmt.Sprintf("meibomian dropout %.1f%% at or above cutoff %.1f%%", dropout, cutoffs.Dropout)
	} else {
		signal.Rationale = fmt.Sprintf("meibomian dropout %.1f%% below cutoff %.1f%%", dropout, cutoffs.Dropout)
	}
	return signal, true
}

func evaluateOsmolarity(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	osm := in.measurements.OsmolarityMOsm
	abnormal := osm >= cutoffs.Osmolarity
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_OSMOLARITY,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("%.1f mOsm/L", osm),
	}
	if abnormal {
		signal.Vote = domain.VOTE_AQUEOUS
		signal.Rationale = fmt.Sprintf("osmolarity %.1f mOsm/L at or above cutoff %.1f", osm, cutoffs.Osmolarity)
	} else {
		signal.Rationale = fmt.Sprintf("osmolarity %.1f mOsm/L below cutoff %.1f", osm, cutoffs.Osmolarity)
	}
	return signal, true
}

func evaluateTearBreakup(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	tbut := in.measurements.TearBreakupTimeSec
	abnormal := tbut <= cutoffs.TearBreakup
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_TEAR_BREAKUP,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("%.1f s", tbut),
	}
	if abnormal {
		signal.Vote = domain.VOTE_AQUEOUS
		signal.Rationale = fmt.Sprintf("tear breakup time %.1fs at or below cutoff %.1fs indicates tear film instability", tbut, cutoffs.TearBreakup)
	} else {
		signal.Rationale = fmt.Sprintf("tear breakup time %.1fs above cutoff %.1fs", tbut, cutoffs.TearBreakup)
	}
	return signal, true
}

func evaluateSchirmer(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	if in.measurements.SchirmerMM == nil {
		return domain.AxisSignal{}, false
	}
	schirmer := *in.measurements.SchirmerMM
	abnormal := schirmer <= cutoffs.Schirmer
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_SCHIRMER,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("%.1f mm/5min", schirmer),
	}
	if abnormal {
		signal.Vote = domain.VOTE_AQUEOUS
		signal.Rationale = fmt.Sprintf("Schirmer %.1fmm at or below cutoff %.1fmm indicates reduced aqueous production", schirmer, cutoffs.Schirmer)
	} else {
		signal.Rationale = fmt.Sprintf("Schirmer %.1fmm above cutoff %.1fmm", schirmer, cutoffs.Schirmer)
	}
	return signal, true
}

func evaluateMeniscus(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	if in.measurements.MeniscusHeightMM == nil {
		return domain.AxisSignal{}, false
	}
	height := *in.measurements.MeniscusHeightMM
	abnormal := height <= cutoffs.Meniscus
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_TEAR_MENISCUS,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("%.2f mm", height),
	}
	if abnormal {
		signal.Vote = domain.VOTE_AQUEOUS
		signal.Rationale = fmt.Sprintf("tear meniscus height %.2fmm at or below cutoff %.2fmm indicates reduced tear volume", height, cutoffs.Meniscus)
	} else {
		signal.Rationale = fmt.Sprintf("tear meniscus height %.2fmm above cutoff %.2fmm", height, cutoffs.Meniscus)
	}
	return signal, true
}

// evaluateStaining reports surface damage for severity staging. Staining
// reflects disease burden in either subtype, so the vote is always neutral.
func evaluateStaining(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	if in.staining == nil {
		return domain.AxisSignal{}, false
	}
	composite := in.staining.Composite
	abnormal := composite >= cutoffs.Staining
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_STAINING,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("composite %.1f, dominant %s", composite, string(in.staining.DominantRegion)),
	}
	if abnormal {
		signal.Rationale = fmt.Sprintf("composite staining %.1f at or above cutoff %.1f indicates ocular surface damage", composite, cutoffs.Staining)
	} else {
		signal.Rationale = fmt.Sprintf("composite staining %.1f below cutoff %.1f", composite, cutoffs.Staining)
	}
	return signal, true
}

// evaluateSymptoms reports patient-reported burden. Symptom questionnaires do
// not discriminate subtype, so the vote is always neutral.
func evaluateSymptoms(cutoffs guideline.Cutoffs, in axisInput) (domain.AxisSignal, bool) {
	if in.measurements.Symptoms == nil {
		return domain.AxisSignal{}, false
	}
	symptoms := in.measurements.Symptoms
	abnormal := symptoms.OSDI >= cutoffs.OSDI || symptoms.DEQ5 >= cutoffs.DEQ5
	signal := domain.AxisSignal{
		Axis:     domain.AXIS_SYMPTOMS,
		Vote:     domain.VOTE_NEUTRAL,
		Abnormal: abnormal,
		Observed: fmt.Sprintf("OSDI %.1f, DEQ-5 %.1f", symptoms.OSDI, symptoms.DEQ5),
	}
	if abnormal {
		signal.Rationale = fmt.Sprintf("symptom scores OSDI %.1f / DEQ-5 %.1f reach the symptomatic range", symptoms.OSDI, symptoms.DEQ5)
	} else {
		signal.Rationale = fmt.Sprintf("symptom scores OSDI %.1f / DEQ-5 %.1f below symptomatic cutoffs", symptoms.OSDI, symptoms.DEQ5)
	}
	return signal, true
}
