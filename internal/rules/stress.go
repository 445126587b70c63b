// Package rules implements the stress and fallout mechanics applied to
// entities during play.
//
// The engine is pure: it mutates only the entity it is handed and takes its
// randomness as an argument, so callers can wrap it inside a single tracked
// mutation and tests can fix the dice.
package rules

import (
	"fmt"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
)

// FalloutSeverity grades a triggered fallout.
type FalloutSeverity string

const (
	FalloutNone     FalloutSeverity = ""
	FalloutMinor    FalloutSeverity = "minor"
	FalloutModerate FalloutSeverity = "moderate"
	FalloutSevere   FalloutSeverity = "severe"
)

// Severity thresholds against total stress across all tracks.
const (
	moderateThreshold = 5
	severeThreshold   = 9
)

// StressResult reports what applying stress did to the entity.
type StressResult struct {
	Resistance domain.Resistance
	// Total is the entity's stress across all tracks after the mark, before
	// any fallout clears the rolled track.
	Total    int
	Roll     int
	Severity FalloutSeverity
	// Fallout is the entry appended to the entity's fallout list, empty
	// when no fallout triggered.
	Fallout string
}

// ApplyStress marks amount stress against the named resistance, then rolls
// a d10 against the entity's total stress. A roll under the total triggers
// fallout: the severity scales with total stress, the fallout is recorded
// on the entity, and the triggering track resets to zero.
func ApplyStress(entity *domain.Entity, resistance domain.Resistance, amount int, roll func(n int) int) (StressResult, error) {
	if !domain.KnownResistance(resistance) {
		return StressResult{}, apperrors.WithMetadata(apperrors.CodeResistanceUnknown,
			"unknown resistance", map[string]string{"Resistance": string(resistance)})
	}
	if amount <= 0 {
		return StressResult{}, apperrors.WithMetadata(apperrors.CodeStressInvalidAmount,
			"stress amount must be positive", map[string]string{"Amount": fmt.Sprintf("%d", amount)})
	}
	if roll == nil {
		return StressResult{}, fmt.Errorf("roll function is required")
	}

	if entity.Resistances == nil {
		entity.Resistances = map[domain.Resistance]int{}
	}
	entity.Resistances[resistance] += amount

	result := StressResult{
		Resistance: resistance,
		Total:      entity.TotalStress(),
		Roll:       roll(10),
	}

	if result.Roll >= result.Total {
		return result, nil
	}

	switch {
	case result.Total >= severeThreshold:
		result.Severity = FalloutSevere
	case result.Total >= moderateThreshold:
		result.Severity = FalloutModerate
	default:
		result.Severity = FalloutMinor
	}

	result.Fallout = fmt.Sprintf("%s %s fallout (rolled %d against %d stress)",
		result.Severity, resistance, result.Roll, result.Total)
	entity.Fallout = append(entity.Fallout, result.Fallout)
	entity.Resistances[resistance] = 0
	return result, nil
}
