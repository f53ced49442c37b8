package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

// EngineVersion identifies the guideline table revision embedded in results.
const EngineVersion = "dews3-2025.1"

// AssessmentResult bundles the outputs of one pipeline run.
type AssessmentResult struct {
	Classification *domain.ClassificationResult `json:"classification"`
	Plan           *domain.TreatmentPlan        `json:"treatment_plan"`
	ProcessingTime string                       `json:"processing_time"`
}

// AssessmentService runs the full diagnostic pipeline for a single exam:
// validation, interference grading, staining scoring, axis evaluation,
// subtype classification, severity staging, and treatment recommendation.
// The service holds no per-exam state, so one instance is safe for
// concurrent use across exams.
type AssessmentService struct {
	logger      *logrus.Logger
	validator   *Validator
	grader      *Grader
	scorer      *Scorer
	axes        *AxisEngine
	classifier  *SubtypeClassifier
	stager      *SeverityStager
	recommender *Recommender
}

// NewAssessmentService wires the pipeline stages together. A zero-value
// cutoffs argument is replaced with the guideline defaults.
func NewAssessmentService(cutoffs guideline.Cutoffs, cacheSize int, logger *logrus.Logger) (*AssessmentService, error) {
	if cutoffs == (guideline.Cutoffs{}) {
		cutoffs = guideline.DefaultCutoffs()
	}
	recommender, err := NewRecommender(cacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommender: %w", err)
	}
	return &AssessmentService{
		logger:      logger,
		validator:   NewValidator(logger),
		grader:      NewGrader(logger),
		scorer:      NewScorer(logger),
		axes:        NewAxisEngine(cutoffs, logger),
		classifier:  NewSubtypeClassifier(logger),
		stager:      NewSeverityStager(logger),
		recommender: recommender,
	}, nil
}

// ValidateOnly checks that a measurement set would enter the pipeline
// cleanly: ranges, enumerated domains, pattern gradeability, and staining
// scorability. No classification is produced.
func (s *AssessmentService) ValidateOnly(raw *domain.MeasurementSet) error {
	measurements, err := s.validator.Validate(raw)
	if err != nil {
		return err
	}
	if _, err := s.grader.Grade(measurements.Pattern); err != nil {
		return err
	}
	if _, err := s.scorer.Score(measurements.Staining); err != nil {
		return err
	}
	return nil
}

// AssessExam runs the complete pipeline on one measurement set. Every stage
// either succeeds or returns its error immediately; the pipeline never
// continues past a failing stage and never substitutes defaults.
func (s *AssessmentService) AssessExam(ctx context.Context, raw *domain.MeasurementSet) (*AssessmentResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	measurements, err := s.validator.Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("measurement validation failed: %w", err)
	}
	if measurements.ExamID == "" {
		measurements.ExamID = uuid.New().String()
	}

	s.logger.WithFields(logrus.Fields{
		"exam_id": measurements.ExamID,
		"pattern": measurements.Pattern.String(),
	}).Info("Starting dry eye assessment")

	// Step 1: grade the lipid layer interference pattern.
	grade, err := s.grader.Grade(measurements.Pattern)
	if err != nil {
		return nil, fmt.Errorf("interference grading failed: %w", err)
	}

	// Step 2: score regional staining. Staining is mandatory pipeline
	// input: an exam without any observations fails here with
	// InsufficientDataError rather than classifying on a partial picture.
	staining, err := s.scorer.Score(measurements.Staining)
	if err != nil {
		return nil, fmt.Errorf("staining scoring failed: %w", err)
	}

	in := axisInput{measurements: measurements, grade: grade, staining: &staining}

	// Step 3: evaluate diagnostic axes and reduce votes to a subtype.
	signals := s.axes.Evaluate(in)
	subtype := s.classifier.Classify(signals)

	// Step 4: stage severity by worst-axis dominance.
	stage := s.stager.Stage(subtype, in)

	result := &domain.ClassificationResult{
		ExamID:              measurements.ExamID,
		Subtype:             subtype,
		SeverityStage:       stage,
		ContributingFactors: contributingFactors(signals),
		Signals:             signals,
		Grade:               grade,
		Staining:            staining,
		ClassifiedAt:        time.Now().UTC(),
		EngineVersion:       EngineVersion,
	}

	// Step 5: map the result to a treatment plan.
	plan, err := s.recommender.Recommend(result)
	if err != nil {
		return nil, fmt.Errorf("treatment recommendation failed: %w", err)
	}

	elapsed := time.Since(startTime)
	s.logger.WithFields(logrus.Fields{
		"exam_id":         result.ExamID,
		"subtype":         result.Subtype.String(),
		"severity_stage":  int(result.SeverityStage),
		"factor_count":    len(result.ContributingFactors),
		"processing_time": elapsed.String(),
	}).Info("Dry eye assessment completed")

	return &AssessmentResult{
		Classification: result,
		Plan:           plan,
		ProcessingTime: elapsed.String(),
	}, nil
}

// contributingFactors collects every axis whose observation was abnormal.
func contributingFactors(signals []domain.AxisSignal) []domain.Axis {
	factors := make([]domain.Axis, 0, len(signals))
	for _, s := range signals {
		if s.Abnormal {
			factors = append(factors, s.Axis)
		}
	}
	return factors
}
