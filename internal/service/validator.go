package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

// Validator normalizes and range-checks raw measurement payloads before
// classification. Validation is all-or-nothing per exam: the first field
// outside its physiological range or enumerated domain fails the whole set,
// and values are never clamped or coerced.
type Validator struct {
	logger *logrus.Logger
}

// NewValidator creates a new measurement validator.
func NewValidator(logger *logrus.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate returns a normalized copy of the measurement set, or a
// *domain.ValidationError describing the first offending field. Pattern
// category membership is deliberately not checked here: the grader owns
// that check and fails closed with UnclassifiablePatternError.
func (v *Validator) Validate(raw *domain.MeasurementSet) (*domain.MeasurementSet, error) {
	if raw == nil {
		return nil, domain.NewValidationError("measurement_set", "is required", nil)
	}

	set := *raw
	set.Pattern = domain.InterferencePattern(strings.ToUpper(strings.TrimSpace(string(raw.Pattern))))

	if set.Pattern == "" {
		return nil, domain.NewValidationError("interference_pattern", "is required", raw.Pattern)
	}

	if set.TearBreakupTimeSec < 0 {
		return nil, domain.NewValidationError("tear_breakup_time_sec", "must be non-negative", raw.TearBreakupTimeSec)
	}
	if set.TearBreakupTimeSec > domain.MaxTearBreakupTimeSec {
		return nil, domain.NewValidationError("tear_breakup_time_sec", "exceeds physiological maximum", raw.TearBreakupTimeSec)
	}

	if set.OsmolarityMOsm <= 0 {
		return nil, domain.NewValidationError("osmolarity_mosm", "must be positive", raw.OsmolarityMOsm)
	}
	if set.OsmolarityMOsm < domain.MinOsmolarityMOsm || set.OsmolarityMOsm > domain.MaxOsmolarityMOsm {
		return nil, domain.NewValidationError("osmolarity_mosm", "outside physiological range", raw.OsmolarityMOsm)
	}

	if set.MeibomianDropout < 0 || set.MeibomianDropout > domain.MaxMeibomianDropout {
		return nil, domain.NewValidationError("meibomian_dropout_pct", "must be within 0-100", raw.MeibomianDropout)
	}

	// Staining observations may be partial or even empty at this stage; an
	// empty sequence fails later in the scorer with InsufficientDataError.
	set.Staining = make([]domain.RegionalStaining, len(raw.Staining))
	for i, obs := range raw.Staining {
		obs.Region = domain.StainingRegion(strings.ToUpper(strings.TrimSpace(string(obs.Region))))
		if !obs.Region.IsValid() {
			return nil, domain.NewValidationError("staining.region", "not an enumerated staining region", raw.Staining[i].Region)
		}
		if obs.Density < 0 || obs.Density > domain.MaxStainingDensity {
			return nil, domain.NewValidationError("staining.density", "must be within 0-5", obs.Density)
		}
		if obs.Extent < 0 || obs.Extent > domain.MaxStainingExtent {
			return nil, domain.NewValidationError("staining.extent", "must be within 0-3", obs.Extent)
		}
		set.Staining[i] = obs
	}

	if set.SchirmerMM != nil {
		if *set.SchirmerMM < 0 || *set.SchirmerMM > domain.MaxSchirmerMM {
			return nil, domain.NewValidationError("schirmer_mm", "outside physiological range", *raw.SchirmerMM)
		}
	}
	if set.MeniscusHeightMM != nil {
		if *set.MeniscusHeightMM < 0 || *set.MeniscusHeightMM > domain.MaxMeniscusHeightMM {
			return nil, domain.NewValidationError("meniscus_height_mm", "outside physiological range", *raw.MeniscusHeightMM)
		}
	}
	if set.Symptoms != nil {
		if set.Symptoms.OSDI < 0 || set.Symptoms.OSDI > domain.MaxOSDIScore {
			return nil, domain.NewValidationError("symptoms.osdi", "must be within 0-100", set.Symptoms.OSDI)
		}
		if set.Symptoms.DEQ5 < 0 || set.Symptoms.DEQ5 > domain.MaxDEQ5Score {
			return nil, domain.NewValidationError("symptoms.deq5", "must be within 0-22", set.Symptoms.DEQ5)
		}
	}

	v.logger.WithFields(logrus.Fields{
		"exam_id":          set.ExamID,
		"pattern":          set.Pattern.String(),
		"staining_regions": len(set.Staining),
	}).Debug("Measurement set validated")

	return &set, nil
}
