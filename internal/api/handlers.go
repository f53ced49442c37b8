package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
	"github.com/mr-gorsky/tear-film-analyzer/internal/history"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// handleAssess runs the full pipeline on the posted measurement set and
// records the outcome in the history store when one is configured.
func (s *Server) handleAssess(c *gin.Context) {
	var measurements domain.MeasurementSet
	if err := c.ShouldBindJSON(&measurements); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "malformed request body", err.Error())
		return
	}

	result, err := s.assessment.AssessExam(c.Request.Context(), &measurements)
	if err != nil {
		s.respondPipelineError(c, err)
		return
	}

	if s.historyStore != nil {
		record := history.NewRecord(result.Classification, result.Plan)
		if err := s.historyStore.Save(c.Request.Context(), record); err != nil {
			// Persistence is an audit concern, not a correctness one:
			// the assessment already succeeded, so log and return it.
			s.logger.WithError(err).WithField("exam_id", result.Classification.ExamID).
				Error("Failed to persist assessment record")
		}
	}

	if s.examRepo != nil {
		measurements.ExamID = result.Classification.ExamID
		if measurements.CollectedAt.IsZero() {
			measurements.CollectedAt = time.Now().UTC()
		}
		if err := s.examRepo.Save(c.Request.Context(), &measurements); err != nil {
			s.logger.WithError(err).WithField("exam_id", measurements.ExamID).
				Error("Failed to persist exam measurements")
		}
	}

	c.JSON(http.StatusOK, result)
}

// handleValidate runs only the validation stage, letting clients check a
// payload without producing a classification.
func (s *Server) handleValidate(c *gin.Context) {
	var measurements domain.MeasurementSet
	if err := c.ShouldBindJSON(&measurements); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "malformed request body", err.Error())
		return
	}

	if err := s.assessment.ValidateOnly(&measurements); err != nil {
		s.respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"timestamp": time.Now().UTC(),
	})
}

// handleGetAssessment returns the stored record for an exam ID.
func (s *Server) handleGetAssessment(c *gin.Context) {
	if s.historyStore == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "assessment history is not enabled", "")
		return
	}

	examID := c.Param("exam_id")
	record, err := s.historyStore.Get(c.Request.Context(), examID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage, "failed to load assessment", err.Error())
		return
	}
	if record == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "no assessment for exam", examID)
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleListAssessments returns stored records, newest first.
func (s *Server) handleListAssessments(c *gin.Context) {
	if s.historyStore == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "assessment history is not enabled", "")
		return
	}

	limit := parsePositiveInt(c.Query("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := parsePositiveInt(c.Query("offset"), 0)

	records, err := s.historyStore.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage, "failed to list assessments", err.Error())
		return
	}
	total, err := s.historyStore.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage, "failed to count assessments", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": records,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// handleReferencePatterns exposes the interference grading table so clients
// can render pattern pickers without hardcoding the guideline.
func (s *Server) handleReferencePatterns(c *gin.Context) {
	patterns := []domain.InterferencePattern{
		domain.ABSENT, domain.OPEN_MESHWORK, domain.CLOSED_MESHWORK,
		domain.WAVE, domain.AMORPHOUS, domain.COLOR_FRINGE,
	}

	entries := make([]gin.H, 0, len(patterns))
	for _, p := range patterns {
		grade, _ := guideline.GradeFor(p)
		entries = append(entries, gin.H{
			"pattern": p,
			"grade":   grade,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"patterns":  entries,
		"scale_max": guideline.GradingScaleMax,
	})
}

// handleReferenceTreatments exposes the treatment lookup tables.
func (s *Server) handleReferenceTreatments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"plans":              guideline.TreatmentPlans,
		"indeterminate_plan": guideline.IndeterminatePlan,
		"staining_modifier":  guideline.AntiInflammatoryModifier,
	})
}

// handleReferenceStats reports how many assessments resolved to each subtype
// over a window, for a coarse clinic-level overview. Requires the PostgreSQL
// backend; the SQLite history store does not keep raw exams.
func (s *Server) handleReferenceStats(c *gin.Context) {
	if s.examRepo == nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "exam statistics require the PostgreSQL backend", "")
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "since must be RFC 3339", raw)
			return
		}
		since = parsed
	}

	counts, err := s.examRepo.CountBySubtypeSince(c.Request.Context(), since)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeStorage, "failed to count assessments by subtype", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":             since,
		"counts_by_subtype": counts,
		"generated_at":      time.Now().UTC(),
	})
}

// respondPipelineError maps pipeline error kinds to HTTP statuses. Validation
// and grading failures are client errors; everything else is a server error.
func (s *Server) respondPipelineError(c *gin.Context, err error) {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		s.respondError(c, http.StatusUnprocessableEntity, domain.ErrCodeValidation, valErr.Error(), valErr.Field)
		return
	}

	var patErr *domain.UnclassifiablePatternError
	if errors.As(err, &patErr) {
		s.respondError(c, http.StatusUnprocessableEntity, domain.ErrCodeClassification, patErr.Error(), string(patErr.Pattern))
		return
	}

	var insufficient *domain.InsufficientDataError
	if errors.As(err, &insufficient) {
		s.respondError(c, http.StatusUnprocessableEntity, domain.ErrCodeClassification, insufficient.Error(), insufficient.Reason)
		return
	}

	s.logger.WithError(err).Error("Assessment pipeline failed")
	s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "assessment failed", "")
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("correlation_id")))
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
