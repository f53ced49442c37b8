package domain

import (
	"time"
)

// AxisSignal is the tagged outcome of evaluating one diagnostic axis.
// Vote is the subtype direction the axis contributes; Abnormal reports
// whether the axis crossed its guideline cutoff (severity-only axes can be
// abnormal while voting NEUTRAL). Observed carries the measured value the
// decision was based on, for auditability.
type AxisSignal struct {
	Axis      Axis     `json:"axis"`
	Vote      AxisVote `json:"vote"`
	Abnormal  bool     `json:"abnormal"`
	Observed  string   `json:"observed"`
	Rationale string   `json:"rationale,omitempty"`
}

// ClassificationResult is the outcome of subtype classification and severity
// staging for a single exam. It is created exactly once per MeasurementSet
// and never mutated afterwards. ContributingFactors lists every axis that
// crossed its cutoff, in evaluation order, for audit trails.
type ClassificationResult struct {
	ExamID              string            `json:"exam_id"`
	Subtype             Subtype           `json:"subtype"`
	SeverityStage       SeverityStage     `json:"severity_stage"`
	ContributingFactors []Axis            `json:"contributing_factors"`
	Signals             []AxisSignal      `json:"signals"`
	Grade               InterferenceGrade `json:"interference_grade"`
	Staining            StainingScore     `json:"staining_score"`
	ClassifiedAt        time.Time         `json:"classified_at"`
	EngineVersion       string            `json:"engine_version"`
}

// HasFactor reports whether the given axis contributed to the decision.
func (r *ClassificationResult) HasFactor(axis Axis) bool {
	for _, a := range r.ContributingFactors {
		if a == axis {
			return true
		}
	}
	return false
}

// LogFields returns structured logging fields for audit trails.
func (r *ClassificationResult) LogFields() map[string]any {
	factors := make([]string, len(r.ContributingFactors))
	for i, a := range r.ContributingFactors {
		factors[i] = string(a)
	}
	return map[string]any{
		"exam_id":              r.ExamID,
		"subtype":              r.Subtype.String(),
		"severity_stage":       int(r.SeverityStage),
		"contributing_factors": factors,
		"interference_grade":   r.Grade.Grade,
		"staining_composite":   r.Staining.Composite,
	}
}

// TreatmentStep is a single named intervention with its guideline citation
// tag, as published in the management/therapy report.
type TreatmentStep struct {
	Intervention string `json:"intervention"`
	Citation     string `json:"citation"`
}

// TreatmentPlan is the ordered treatment recommendation derived
// deterministically from a ClassificationResult. RepeatMeasurement is set
// on the fixed plan emitted for indeterminate classifications, which must
// never contain therapeutic steps.
type TreatmentPlan struct {
	Subtype           Subtype         `json:"subtype"`
	SeverityStage     SeverityStage   `json:"severity_stage"`
	Steps             []TreatmentStep `json:"steps"`
	RepeatMeasurement bool            `json:"repeat_measurement"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
