package service

import (
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

// Scorer reduces per-region ocular surface staining observations to a single
// weighted composite with a dominant region. Duplicate observations for the
// same region keep the worst value, so re-measured regions never dilute the
// composite.
type Scorer struct {
	logger *logrus.Logger
}

// NewScorer creates a new staining scorer.
func NewScorer(logger *logrus.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// regionValue converts one regional observation to its scored value. Extent
// grade 2 or above bumps the density by one point, capped at the density
// ceiling, so widespread moderate staining outranks focal staining of the
// same density.
func regionValue(obs domain.RegionalStaining) float64 {
	value := obs.Density
	if obs.Extent >= 2 {
		value++
	}
	if value > domain.MaxStainingDensity {
		value = domain.MaxStainingDensity
	}
	return float64(value)
}

// Score computes the weighted composite staining score across all observed
// regions. InsufficientDataError is returned when no observations are
// present; staining is mandatory input and the error propagates to the
// caller unchanged.
func (s *Scorer) Score(observations []domain.RegionalStaining) (domain.StainingScore, error) {
	if len(observations) == 0 {
		return domain.StainingScore{}, &domain.InsufficientDataError{
			Reason: "no staining observations provided",
		}
	}

	worst := make(map[domain.StainingRegion]float64, len(guideline.RegionPriority))
	for _, obs := range observations {
		value := regionValue(obs)
		if existing, seen := worst[obs.Region]; !seen || value > existing {
			worst[obs.Region] = value
		}
	}

	var composite float64
	for region, value := range worst {
		composite += guideline.RegionWeights[region] * value
	}

	// Priority order breaks ties: cornea beats limbus beats conjunctiva
	// when weighted values are equal.
	var dominant domain.StainingRegion
	var dominantValue float64 = -1
	for _, region := range guideline.RegionPriority {
		value, seen := worst[region]
		if !seen {
			continue
		}
		weighted := guideline.RegionWeights[region] * value
		if weighted > dominantValue {
			dominant = region
			dominantValue = weighted
		}
	}

	score := domain.StainingScore{
		Composite:      composite,
		DominantRegion: dominant,
		Complete:       len(worst) == len(guideline.RegionPriority),
	}

	s.logger.WithFields(logrus.Fields{
		"composite":       score.Composite,
		"dominant_region": string(score.DominantRegion),
		"complete":        score.Complete,
	}).Debug("Staining observations scored")

	return score, nil
}
