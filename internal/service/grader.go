package service

import (
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

// Grader maps a categorical lipid-layer interference observation to its
// ordinal grade on the guideline scale. The pattern-to-grade table in
// internal/guideline is the single source of truth; unknown categories fail
// closed with UnclassifiablePatternError rather than defaulting, because a
// defaulted grade would corrupt downstream severity staging.
type Grader struct {
	logger *logrus.Logger
}

// NewGrader creates a new interference pattern grader.
func NewGrader(logger *logrus.Logger) *Grader {
	return &Grader{logger: logger}
}

// Grade derives the ordinal interference grade for a pattern observation.
func (g *Grader) Grade(pattern domain.InterferencePattern) (domain.InterferenceGrade, error) {
	grade, ok := guideline.GradeFor(pattern)
	if !ok {
		g.logger.WithField("pattern", string(pattern)).Warn("Interference pattern outside enumerated set")
		return domain.InterferenceGrade{}, &domain.UnclassifiablePatternError{Pattern: pattern}
	}

	g.logger.WithFields(logrus.Fields{
		"pattern": pattern.String(),
		"grade":   grade,
	}).Debug("Interference pattern graded")

	return domain.InterferenceGrade{Grade: grade, Pattern: pattern}, nil
}
