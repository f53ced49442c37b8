// Package mcp exposes the dry eye assessment pipeline as Model Context
// Protocol tools over stdio, so agent clients can run classifications
// without the HTTP server.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
	"github.com/mr-gorsky/tear-film-analyzer/internal/history"
	"github.com/mr-gorsky/tear-film-analyzer/internal/service"
)

const serverName = "tear-film-analyzer"

// Server wraps the MCP SDK server around the assessment pipeline.
// The history store is optional; without it the assessment tools still
// work but nothing is persisted.
type Server struct {
	MCPServer *sdkmcp.Server

	assessment  *service.AssessmentService
	grader      *service.Grader
	scorer      *service.Scorer
	recommender *service.Recommender
	store       history.Store
	log         *logrus.Logger
}

// NewServer creates an MCP server exposing the assessment tools.
func NewServer(assessment *service.AssessmentService, store history.Store, logger *logrus.Logger) (*Server, error) {
	recommender, err := service.NewRecommender(service.DefaultPlanCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("creating recommender: %w", err)
	}

	s := &Server{
		assessment:  assessment,
		grader:      service.NewGrader(logger),
		scorer:      service.NewScorer(logger),
		recommender: recommender,
		store:       store,
		log:         logger,
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: serverName, Version: service.EngineVersion},
		nil,
	)
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until the context is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.WithField("server", serverName).Info("MCP server listening on stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "assess_exam",
		Description: "Run the full dry eye assessment pipeline on one exam's measurements: validate, grade, score, classify subtype, stage severity, and map a treatment plan. Persists the outcome when history storage is configured.",
	}, s.handleAssessExam)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate_measurements",
		Description: "Check a measurement set against physiological plausibility bounds without classifying. Returns the violation instead of failing the call.",
	}, s.handleValidateMeasurements)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "grade_interference_pattern",
		Description: "Map a categorical lipid-layer interferometry pattern to its ordinal grade (0-4). Unknown patterns are rejected, never defaulted.",
	}, s.handleGradePattern)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "score_staining",
		Description: "Compute the composite ocular surface staining score from regional vital-dye observations, with the dominant region and coverage flag.",
	}, s.handleScoreStaining)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "recommend_treatment",
		Description: "Look up the staged treatment plan for a subtype and severity stage. Indeterminate classifications get a repeat-measurement plan, never therapeutic steps.",
	}, s.handleRecommendTreatment)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_assessment",
		Description: "Retrieve a stored assessment outcome by exam ID.",
	}, s.handleGetAssessment)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_assessments",
		Description: "List stored assessment outcomes, newest first, with pagination.",
	}, s.handleListAssessments)
}

// --- Tool input/output types ---

type stainingInput struct {
	Region  string `json:"region" jsonschema:"ocular surface region (CORNEA, LIMBUS, CONJUNCTIVA)"`
	Density int    `json:"density" jsonschema:"staining density on the 0-5 ordinal panel scale"`
	Extent  int    `json:"extent" jsonschema:"regional involvement 0-3"`
}

type measurementsInput struct {
	ExamID             string          `json:"exam_id,omitempty" jsonschema:"exam identifier; generated when omitted"`
	Pattern            string          `json:"interference_pattern" jsonschema:"lipid-layer interferometry pattern (ABSENT, OPEN_MESHWORK, CLOSED_MESHWORK, WAVE, AMORPHOUS, COLOR_FRINGE)"`
	TearBreakupTimeSec float64         `json:"tear_breakup_time_sec" jsonschema:"fluorescein tear breakup time in seconds"`
	OsmolarityMOsm     float64         `json:"osmolarity_mosm" jsonschema:"tear osmolarity in mOsm/L"`
	MeibomianDropout   float64         `json:"meibomian_dropout_pct" jsonschema:"meibomian gland dropout percentage 0-100"`
	Staining           []stainingInput `json:"staining,omitempty" jsonschema:"regional vital-dye staining observations"`
	SchirmerMM         *float64        `json:"schirmer_mm,omitempty" jsonschema:"Schirmer I wetting length in mm, if performed"`
	MeniscusHeightMM   *float64        `json:"meniscus_height_mm,omitempty" jsonschema:"tear meniscus height in mm, if measured"`
	OSDI               *float64        `json:"osdi,omitempty" jsonschema:"OSDI questionnaire score 0-100, if collected"`
	DEQ5               *float64        `json:"deq5,omitempty" jsonschema:"DEQ-5 questionnaire score 0-22, if collected"`
}

type treatmentStepOutput struct {
	Intervention string `json:"intervention"`
	Citation     string `json:"citation"`
}

type assessExamOutput struct {
	ExamID              string                `json:"exam_id"`
	Subtype             string                `json:"subtype"`
	SeverityStage       int                   `json:"severity_stage"`
	ContributingFactors []string              `json:"contributing_factors"`
	InterferenceGrade   int                   `json:"interference_grade"`
	StainingComposite   float64               `json:"staining_composite"`
	PlanSteps           []treatmentStepOutput `json:"plan_steps"`
	RepeatMeasurement   bool                  `json:"repeat_measurement"`
	EngineVersion       string                `json:"engine_version"`
	Persisted           bool                  `json:"persisted"`
}

type validateOutput struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type gradePatternInput struct {
	Pattern string `json:"pattern" jsonschema:"lipid-layer interferometry pattern"`
}

type gradePatternOutput struct {
	Pattern  string `json:"pattern"`
	Grade    int    `json:"grade"`
	ScaleMax int    `json:"scale_max"`
}

type scoreStainingInput struct {
	Staining []stainingInput `json:"staining" jsonschema:"regional vital-dye staining observations"`
}

type scoreStainingOutput struct {
	Composite      float64 `json:"composite"`
	DominantRegion string  `json:"dominant_region"`
	Complete       bool    `json:"complete"`
}

type recommendTreatmentInput struct {
	Subtype             string `json:"subtype" jsonschema:"classified subtype (AQUEOUS_DEFICIENT, EVAPORATIVE, MIXED, INDETERMINATE)"`
	SeverityStage       int    `json:"severity_stage" jsonschema:"severity stage 1-4"`
	StainingContributed bool   `json:"staining_contributed,omitempty" jsonschema:"whether ocular surface staining was a contributing factor"`
}

type recommendTreatmentOutput struct {
	Steps             []treatmentStepOutput `json:"steps"`
	RepeatMeasurement bool                  `json:"repeat_measurement"`
}

type getAssessmentInput struct {
	ExamID string `json:"exam_id" jsonschema:"exam identifier"`
}

type assessmentRecordOutput struct {
	ExamID              string                `json:"exam_id"`
	Subtype             string                `json:"subtype"`
	SeverityStage       int                   `json:"severity_stage"`
	ContributingFactors []string              `json:"contributing_factors"`
	InterferenceGrade   int                   `json:"interference_grade"`
	StainingComposite   float64               `json:"staining_composite"`
	PlanSteps           []treatmentStepOutput `json:"plan_steps"`
	RepeatMeasurement   bool                  `json:"repeat_measurement"`
	EngineVersion       string                `json:"engine_version"`
	CreatedAt           time.Time             `json:"created_at"`
}

type getAssessmentOutput struct {
	Found  bool                    `json:"found"`
	Record *assessmentRecordOutput `json:"record,omitempty"`
}

type listAssessmentsInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"page size (default 20, max 100)"`
	Offset int `json:"offset,omitempty" jsonschema:"page offset"`
}

type listAssessmentsOutput struct {
	Records []assessmentRecordOutput `json:"records"`
	Total   int64                    `json:"total"`
}

// --- Tool handlers ---

func (s *Server) handleAssessExam(ctx context.Context, _ *sdkmcp.CallToolRequest, input measurementsInput) (*sdkmcp.CallToolResult, assessExamOutput, error) {
	raw := toMeasurementSet(input)

	result, err := s.assessment.AssessExam(ctx, raw)
	if err != nil {
		return nil, assessExamOutput{}, fmt.Errorf("assess_exam: %w", err)
	}

	out := assessExamOutput{
		ExamID:              result.Classification.ExamID,
		Subtype:             string(result.Classification.Subtype),
		SeverityStage:       int(result.Classification.SeverityStage),
		ContributingFactors: axisStrings(result.Classification.ContributingFactors),
		InterferenceGrade:   result.Classification.Grade.Grade,
		StainingComposite:   result.Classification.Staining.Composite,
		PlanSteps:           stepOutputs(result.Plan.Steps),
		RepeatMeasurement:   result.Plan.RepeatMeasurement,
		EngineVersion:       result.Classification.EngineVersion,
	}

	if s.store != nil {
		record := history.NewRecord(result.Classification, result.Plan)
		if err := s.store.Save(ctx, record); err != nil {
			s.log.WithFields(logrus.Fields{
				"exam_id": record.ExamID,
				"error":   err,
			}).Error("Failed to persist assessment")
		} else {
			out.Persisted = true
		}
	}

	return nil, out, nil
}

func (s *Server) handleValidateMeasurements(ctx context.Context, _ *sdkmcp.CallToolRequest, input measurementsInput) (*sdkmcp.CallToolResult, validateOutput, error) {
	if err := s.assessment.ValidateOnly(toMeasurementSet(input)); err != nil {
		return nil, validateOutput{Valid: false, Reason: err.Error()}, nil
	}
	return nil, validateOutput{Valid: true}, nil
}

func (s *Server) handleGradePattern(ctx context.Context, _ *sdkmcp.CallToolRequest, input gradePatternInput) (*sdkmcp.CallToolResult, gradePatternOutput, error) {
	grade, err := s.grader.Grade(domain.InterferencePattern(strings.ToUpper(input.Pattern)))
	if err != nil {
		return nil, gradePatternOutput{}, err
	}

	return nil, gradePatternOutput{
		Pattern:  string(grade.Pattern),
		Grade:    grade.Grade,
		ScaleMax: guideline.GradingScaleMax,
	}, nil
}

func (s *Server) handleScoreStaining(ctx context.Context, _ *sdkmcp.CallToolRequest, input scoreStainingInput) (*sdkmcp.CallToolResult, scoreStainingOutput, error) {
	observations := toStaining(input.Staining)
	for _, obs := range observations {
		if !obs.Region.IsValid() {
			return nil, scoreStainingOutput{}, fmt.Errorf("unknown staining region %q", obs.Region)
		}
		if obs.Density < 0 || obs.Density > domain.MaxStainingDensity {
			return nil, scoreStainingOutput{}, fmt.Errorf("staining density must be 0-%d, got %d", domain.MaxStainingDensity, obs.Density)
		}
		if obs.Extent < 0 || obs.Extent > domain.MaxStainingExtent {
			return nil, scoreStainingOutput{}, fmt.Errorf("staining extent must be 0-%d, got %d", domain.MaxStainingExtent, obs.Extent)
		}
	}

	score, err := s.scorer.Score(observations)
	if err != nil {
		return nil, scoreStainingOutput{}, err
	}

	return nil, scoreStainingOutput{
		Composite:      score.Composite,
		DominantRegion: string(score.DominantRegion),
		Complete:       score.Complete,
	}, nil
}

func (s *Server) handleRecommendTreatment(ctx context.Context, _ *sdkmcp.CallToolRequest, input recommendTreatmentInput) (*sdkmcp.CallToolResult, recommendTreatmentOutput, error) {
	subtype := domain.Subtype(input.Subtype)
	if !subtype.IsValid() {
		return nil, recommendTreatmentOutput{}, fmt.Errorf("unknown subtype %q", input.Subtype)
	}
	stage := domain.SeverityStage(input.SeverityStage)
	if !stage.IsValid() {
		return nil, recommendTreatmentOutput{}, fmt.Errorf("severity stage must be 1-4, got %d", input.SeverityStage)
	}

	result := &domain.ClassificationResult{
		Subtype:       subtype,
		SeverityStage: stage,
	}
	if input.StainingContributed {
		result.ContributingFactors = []domain.Axis{domain.AXIS_STAINING}
	}

	plan, err := s.recommender.Recommend(result)
	if err != nil {
		return nil, recommendTreatmentOutput{}, fmt.Errorf("recommend_treatment: %w", err)
	}

	return nil, recommendTreatmentOutput{
		Steps:             stepOutputs(plan.Steps),
		RepeatMeasurement: plan.RepeatMeasurement,
	}, nil
}

func (s *Server) handleGetAssessment(ctx context.Context, _ *sdkmcp.CallToolRequest, input getAssessmentInput) (*sdkmcp.CallToolResult, getAssessmentOutput, error) {
	if s.store == nil {
		return nil, getAssessmentOutput{}, fmt.Errorf("history storage is not configured")
	}

	record, err := s.store.Get(ctx, input.ExamID)
	if err != nil {
		return nil, getAssessmentOutput{}, fmt.Errorf("get_assessment: %w", err)
	}
	if record == nil {
		return nil, getAssessmentOutput{Found: false}, nil
	}

	out := recordOutput(record)
	return nil, getAssessmentOutput{Found: true, Record: &out}, nil
}

func (s *Server) handleListAssessments(ctx context.Context, _ *sdkmcp.CallToolRequest, input listAssessmentsInput) (*sdkmcp.CallToolResult, listAssessmentsOutput, error) {
	if s.store == nil {
		return nil, listAssessmentsOutput{}, fmt.Errorf("history storage is not configured")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	records, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, listAssessmentsOutput{}, fmt.Errorf("list_assessments: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, listAssessmentsOutput{}, fmt.Errorf("list_assessments: %w", err)
	}

	out := listAssessmentsOutput{
		Records: make([]assessmentRecordOutput, 0, len(records)),
		Total:   total,
	}
	for _, r := range records {
		out.Records = append(out.Records, recordOutput(r))
	}
	return nil, out, nil
}

// --- Conversions ---

func toMeasurementSet(input measurementsInput) *domain.MeasurementSet {
	m := &domain.MeasurementSet{
		ExamID:             input.ExamID,
		Pattern:            domain.InterferencePattern(input.Pattern),
		TearBreakupTimeSec: input.TearBreakupTimeSec,
		OsmolarityMOsm:     input.OsmolarityMOsm,
		MeibomianDropout:   input.MeibomianDropout,
		Staining:           toStaining(input.Staining),
		SchirmerMM:         input.SchirmerMM,
		MeniscusHeightMM:   input.MeniscusHeightMM,
		CollectedAt:        time.Now(),
	}

	if input.OSDI != nil || input.DEQ5 != nil {
		m.Symptoms = &domain.SymptomScores{}
		if input.OSDI != nil {
			m.Symptoms.OSDI = *input.OSDI
		}
		if input.DEQ5 != nil {
			m.Symptoms.DEQ5 = *input.DEQ5
		}
	}

	return m
}

func toStaining(inputs []stainingInput) []domain.RegionalStaining {
	if len(inputs) == 0 {
		return nil
	}
	observations := make([]domain.RegionalStaining, 0, len(inputs))
	for _, in := range inputs {
		observations = append(observations, domain.RegionalStaining{
			Region:  domain.StainingRegion(strings.ToUpper(in.Region)),
			Density: in.Density,
			Extent:  in.Extent,
		})
	}
	return observations
}

func axisStrings(axes []domain.Axis) []string {
	out := make([]string, 0, len(axes))
	for _, a := range axes {
		out = append(out, string(a))
	}
	return out
}

func stepOutputs(steps []domain.TreatmentStep) []treatmentStepOutput {
	out := make([]treatmentStepOutput, 0, len(steps))
	for _, step := range steps {
		out = append(out, treatmentStepOutput{
			Intervention: step.Intervention,
			Citation:     step.Citation,
		})
	}
	return out
}

func recordOutput(r *history.Record) assessmentRecordOutput {
	return assessmentRecordOutput{
		ExamID:              r.ExamID,
		Subtype:             string(r.Subtype),
		SeverityStage:       int(r.SeverityStage),
		ContributingFactors: axisStrings(r.ContributingFactors),
		InterferenceGrade:   r.InterferenceGrade,
		StainingComposite:   r.StainingComposite,
		PlanSteps:           stepOutputs(r.PlanSteps),
		RepeatMeasurement:   r.RepeatMeasurement,
		EngineVersion:       r.EngineVersion,
		CreatedAt:           r.CreatedAt,
	}
}
