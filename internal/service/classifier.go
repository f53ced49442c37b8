package service

import (
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

// minDefiniteVotes is the minimum number of direction-carrying axis votes
// required before the classifier commits to any subtype. Below this count
// the assessment is INDETERMINATE and the clinician is asked to repeat
// measurements rather than act on a single abnormal axis.
const minDefiniteVotes = 2

// SubtypeClassifier reduces per-axis votes to a dry eye subtype. Votes are
// counted by direction; neutral votes never influence the outcome.
type SubtypeClassifier struct {
	logger *logrus.Logger
}

// NewSubtypeClassifier creates a new subtype classifier.
func NewSubtypeClassifier(logger *logrus.Logger) *SubtypeClassifier {
	return &SubtypeClassifier{logger: logger}
}

// Classify reduces the axis signals to a subtype:
//
//   - fewer than two definite votes in total: INDETERMINATE
//   - definite votes in both directions: MIXED
//   - two or more votes in a single direction: that direction's subtype
func (c *SubtypeClassifier) Classify(signals []domain.AxisSignal) domain.Subtype {
	var aqueous, evaporative int
	for _, s := range signals {
		switch s.Vote {
		case domain.VOTE_AQUEOUS:
			aqueous++
		case domain.VOTE_EVAPORATIVE:
			evaporative++
		}
	}

	subtype := reduceVotes(aqueous, evaporative)

	c.logger.WithFields(logrus.Fields{
		"aqueous_votes":     aqueous,
		"evaporative_votes": evaporative,
		"subtype":           subtype.String(),
	}).Debug("Axis votes reduced to subtype")

	return subtype
}

func reduceVotes(aqueous, evaporative int) domain.Subtype {
	if aqueous+evaporative < minDefiniteVotes {
		return domain.INDETERMINATE
	}
	if aqueous > 0 && evaporative > 0 {
		return domain.MIXED
	}
	if aqueous >= minDefiniteVotes {
		return domain.AQUEOUS_DEFICIENT
	}
	return domain.EVAPORATIVE
}
