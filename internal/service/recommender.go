package service

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

// DefaultPlanCacheSize bounds the recommendation cache. The key space is
// tiny (subtype x stage x staining flag) so a small cache covers it fully.
const DefaultPlanCacheSize = 64

// Recommender maps a classification result to an ordered treatment plan by
// pure table lookup. Plans are deterministic and regenerable; the cache is
// an optimization only, never a correctness dependency.
type Recommender struct {
	cache  *lru.Cache[string, []domain.TreatmentStep]
	logger *logrus.Logger
}

// NewRecommender creates a recommender with a bounded plan cache.
func NewRecommender(cacheSize int, logger *logrus.Logger) (*Recommender, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultPlanCacheSize
	}
	cache, err := lru.New[string, []domain.TreatmentStep](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}
	return &Recommender{cache: cache, logger: logger}, nil
}

func planKey(subtype domain.Subtype, stage domain.SeverityStage, stainingContributed bool) string {
	return fmt.Sprintf("%s|%d|%t", subtype, stage, stainingContributed)
}

// Recommend builds the treatment plan for a classification result. An
// indeterminate subtype always returns the fixed repeat-measurement plan
// with no therapeutic step.
func (r *Recommender) Recommend(result *domain.ClassificationResult) (*domain.TreatmentPlan, error) {
	if result == nil {
		return nil, domain.NewValidationError("classification_result", "classification result is required", nil)
	}

	if result.Subtype == domain.INDETERMINATE {
		r.logger.WithField("exam_id", result.ExamID).Info("Indeterminate subtype, issuing repeat-measurement plan")
		return &domain.TreatmentPlan{
			Subtype:           result.Subtype,
			SeverityStage:     result.SeverityStage,
			Steps:             append([]domain.TreatmentStep(nil), guideline.IndeterminatePlan...),
			RepeatMeasurement: true,
			GeneratedAt:       time.Now().UTC(),
		}, nil
	}

	stainingContributed := result.HasFactor(domain.AXIS_STAINING)
	key := planKey(result.Subtype, result.SeverityStage, stainingContributed)

	steps, cached := r.cache.Get(key)
	if !cached {
		base, ok := guideline.PlanFor(result.Subtype, result.SeverityStage)
		if !ok {
			return nil, fmt.Errorf("%w: no treatment table entry for %s stage %d",
				domain.ErrNotFound, result.Subtype, result.SeverityStage)
		}
		steps = append([]domain.TreatmentStep(nil), base...)
		if stainingContributed {
			steps = append(steps, guideline.AntiInflammatoryModifier)
		}
		r.cache.Add(key, steps)
	}

	r.logger.WithFields(logrus.Fields{
		"exam_id":    result.ExamID,
		"subtype":    result.Subtype.String(),
		"stage":      int(result.SeverityStage),
		"step_count": len(steps),
		"cache_hit":  cached,
	}).Debug("Treatment plan generated")

	return &domain.TreatmentPlan{
		Subtype:           result.Subtype,
		SeverityStage:     result.SeverityStage,
		Steps:             steps,
		RepeatMeasurement: false,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}
