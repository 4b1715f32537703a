package resolver

import (
	"strings"
	"unicode"
)

const (
	SafeZoneLeft  = "left"
	SafeZoneRight = "right"
)

// LetterPosition is one per-letter image slot of a name video. Safe zones
// alternate left/right across the name so the letter artwork never collides
// with the animated character.
type LetterPosition struct {
	Index    int
	Letter   string
	SafeZone string
}

// LetterCoverage reports how much of a name can be filled from the available
// pool of safe-zone letter images. Pairs follows the template contract:
// min(left, right) alternating pairs, each covering two positions.
type LetterCoverage struct {
	Positions      []LetterPosition
	LeftAvailable  int
	RightAvailable int
	Pairs          int
	Filled         int
	RequiredPairs  int
}

// PlanLetterPositions expands a child's name into its letter positions,
// alternating safe zones starting from the left.
func PlanLetterPositions(name string) []LetterPosition {
	var positions []LetterPosition
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		if !unicode.IsLetter(r) {
			continue
		}
		zone := SafeZoneLeft
		if len(positions)%2 == 1 {
			zone = SafeZoneRight
		}
		positions = append(positions, LetterPosition{
			Index:    len(positions),
			Letter:   string(r),
			SafeZone: zone,
		})
	}
	return positions
}

// UniqueLetters keeps the first occurrence of each letter, in name order.
func UniqueLetters(name string) []string {
	seen := make(map[rune]bool)
	var letters []string
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		if !unicode.IsLetter(r) || seen[r] {
			continue
		}
		seen[r] = true
		letters = append(letters, string(r))
	}
	return letters
}

// ComputeLetterCoverage applies the pair formula to the available safe-zone
// pools: pairs = min(left, right) * 2 positions fillable, capped at the name
// length; the gating requirement derives from the unique-letter sequence.
func ComputeLetterCoverage(name string, leftAvailable, rightAvailable int) LetterCoverage {
	positions := PlanLetterPositions(name)
	pairs := leftAvailable
	if rightAvailable < pairs {
		pairs = rightAvailable
	}
	pairs *= 2
	filled := pairs
	if filled > len(positions) {
		filled = len(positions)
	}
	return LetterCoverage{
		Positions:      positions,
		LeftAvailable:  leftAvailable,
		RightAvailable: rightAvailable,
		Pairs:          pairs,
		Filled:         filled,
		RequiredPairs:  len(UniqueLetters(name)),
	}
}
