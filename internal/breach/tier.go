// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package breach

import (
	"fmt"

	"github.com/samber/lo"
)

// Tier is a severity classification. Lower values are more severe and win
// when several rules match.
type Tier int

const (
	TierSensitive Tier = iota
	TierPassword
	TierCritical
	TierModerate
	TierLow
)

// Tiers lists every tier in priority order.
var Tiers = []Tier{TierSensitive, TierPassword, TierCritical, TierModerate, TierLow}

var tierInfo = map[Tier]struct{ id, color string }{
	TierSensitive: {"sensitive", "#71660d"},
	TierPassword:  {"password", "#d01317"},
	TierCritical:  {"critical", "#e75e0d"},
	TierModerate:  {"moderate", "#f6a214"},
	TierLow:       {"low", "#f7d81f"},
}

// String returns the stable identifier of the tier.
func (t Tier) String() string {
	if info, ok := tierInfo[t]; ok {
		return info.id
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Color returns the display color of the tier.
func (t Tier) Color() string {
	return tierInfo[t].color
}

// LightBackground reports whether text drawn on Color should be dark.
func (t Tier) LightBackground() bool {
	return t == TierLow
}

// LabelID is the message ID of the tier label.
func (t Tier) LabelID() string {
	return "tier_" + t.String() + "_label"
}

// AdviceTitleID is the message ID of the advice title.
func (t Tier) AdviceTitleID() string {
	return "tier_" + t.String() + "_advice_title"
}

// AdviceTextID is the message ID of the advice text.
func (t Tier) AdviceTextID() string {
	return "tier_" + t.String() + "_advice_text"
}

// MarshalText encodes the tier as its identifier.
func (t Tier) MarshalText() ([]byte, error) {
	if _, ok := tierInfo[t]; !ok {
		return nil, fmt.Errorf("unknown tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier identifier.
func (t *Tier) UnmarshalText(text []byte) error {
	for _, candidate := range Tiers {
		if tierInfo[candidate].id == string(text) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", text)
}

// Classify assigns b to exactly one tier. The first matching rule wins:
// sensitive flag, passwords exposed, three or more data classes, exactly
// two, anything else.
func Classify(b Breach) Tier {
	switch n := b.DistinctDataClasses(); {
	case b.IsSensitive:
		return TierSensitive
	case b.HasDataClass(DataClassPasswords):
		return TierPassword
	case n >= 3:
		return TierCritical
	case n == 2:
		return TierModerate
	default:
		return TierLow
	}
}

// Bucket is the number of breaches assigned to one tier.
type Bucket struct {
	Tier  Tier `json:"tier"`
	Count int  `json:"count"`
}

// Summary aggregates a breach list per tier.
type Summary struct {
	// Legend has every tier in priority order, zero counts included.
	Legend []Bucket `json:"legend"`
	// Chart has only the tiers with at least one breach.
	Chart []Bucket `json:"chart"`
	Total int      `json:"total"`
}

// Count returns the count of tier t.
func (s Summary) Count(t Tier) int {
	b, _ := lo.Find(s.Legend, func(b Bucket) bool { return b.Tier == t })
	return b.Count
}

// Summarize classifies every breach and counts them per tier.
func Summarize(breaches []Breach) Summary {
	counts := lo.CountValuesBy(breaches, Classify)

	legend := lo.Map(Tiers, func(t Tier, _ int) Bucket {
		return Bucket{Tier: t, Count: counts[t]}
	})

	return Summary{
		Legend: legend,
		Chart: lo.Filter(legend, func(b Bucket, _ int) bool {
			return b.Count > 0
		}),
		Total: len(breaches),
	}
}
