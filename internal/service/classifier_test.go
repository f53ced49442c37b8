package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

func signal(axis domain.Axis, vote domain.AxisVote) domain.AxisSignal {
	return domain.AxisSignal{Axis: axis, Vote: vote, Abnormal: vote != domain.VOTE_NEUTRAL}
}

func TestSubtypeClassifier_Classify(t *testing.T) {
	c := NewSubtypeClassifier(testLogger())

	tests := []struct {
		name    string
		signals []domain.AxisSignal
		want    domain.Subtype
	}{
		{
			name:    "no signals",
			signals: nil,
			want:    domain.INDETERMINATE,
		},
		{
			name: "all normal",
			signals: []domain.AxisSignal{
				signal(domain.AXIS_OSMOLARITY, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_TEAR_BREAKUP, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_INTERFERENCE, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_DROPOUT, domain.VOTE_NEUTRAL),
			},
			want: domain.INDETERMINATE,
		},
		{
			name: "single abnormal axis is never enough",
			signals: []domain.AxisSignal{
				signal(domain.AXIS_OSMOLARITY, domain.VOTE_AQUEOUS),
				signal(domain.AXIS_TEAR_BREAKUP, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_INTERFERENCE, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_DROPOUT, domain.VOTE_NEUTRAL),
			},
			want: domain.INDETERMINATE,
		},
		{
			name: "two aqueous votes with normal evaporative axes",
			signals: []domain.AxisSignal{
				signal(domain.AXIS_OSMOLARITY, domain.VOTE_AQUEOUS),
				signal(domain.AXIS_TEAR_BREAKUP, domain.VOTE_AQUEOUS),
				signal(domain.AXIS_INTERFERENCE, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_DROPOUT, domain.VOTE_NEUTRAL),
			},
			want: domain.AQUEOUS_DEFICIENT,
		},
		{
			name: "two evaporative votes with normal aqueous axes",
			signals: []domain.AxisSignal{
				signal(domain.AXIS_OSMOLARITY, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_TEAR_BREAKUP, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_INTERFERENCE, domain.VOTE_EVAPORATIVE),
				signal(domain.AXIS_DROPOUT, domain.VOTE_EVAPORATIVE),
			},
			want: domain.EVAPORATIVE,
		},
		{
			name: "exactly two opposite votes resolve to mixed",
			signals: []domain.AxisSignal{
				signal(domain.AXIS_OSMOLARITY, domain.VOTE_AQUEOUS),
				signal(domain.AXIS_TEAR_BREAKUP, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_INTERFERENCE, domain.VOTE_EVAPORATIVE),
				signal(domain.AXIS_DROPOUT, domain.VOTE_NEUTRAL),
			},
			want: domain.MIXED,
		},
		{
			name: "abnormality in both directions is mixed even when unbalanced",
			signals: []domain.AxisSignal{
				signal(domain.AXIS_OSMOLARITY, domain.VOTE_AQUEOUS),
				signal(domain.AXIS_TEAR_BREAKUP, domain.VOTE_AQUEOUS),
				signal(domain.AXIS_INTERFERENCE, domain.VOTE_EVAPORATIVE),
				signal(domain.AXIS_DROPOUT, domain.VOTE_NEUTRAL),
			},
			want: domain.MIXED,
		},
		{
			name: "neutral severity axes never tip the vote",
			signals: []domain.AxisSignal{
				signal(domain.AXIS_OSMOLARITY, domain.VOTE_AQUEOUS),
				signal(domain.AXIS_STAINING, domain.VOTE_NEUTRAL),
				signal(domain.AXIS_SYMPTOMS, domain.VOTE_NEUTRAL),
			},
			want: domain.INDETERMINATE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.signals))
		})
	}
}

func TestReduceVotes_Exhaustive(t *testing.T) {
	tests := []struct {
		aqueous     int
		evaporative int
		want        domain.Subtype
	}{
		{0, 0, domain.INDETERMINATE},
		{1, 0, domain.INDETERMINATE},
		{0, 1, domain.INDETERMINATE},
		{2, 0, domain.AQUEOUS_DEFICIENT},
		{0, 2, domain.EVAPORATIVE},
		{1, 1, domain.MIXED},
		{2, 1, domain.MIXED},
		{1, 2, domain.MIXED},
		{3, 3, domain.MIXED},
		{4, 0, domain.AQUEOUS_DEFICIENT},
		{0, 4, domain.EVAPORATIVE},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, reduceVotes(tt.aqueous, tt.evaporative),
			"aqueous=%d evaporative=%d", tt.aqueous, tt.evaporative)
	}
}
