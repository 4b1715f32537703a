package resolver

import (
	"sort"

	"github.com/google/uuid"

	"github.com/lumokids/storytime-backend/internal/types"
)

type SlotStatus string

const (
	SlotStatusReady      SlotStatus = "ready"
	SlotStatusGenerating SlotStatus = "generating"
	SlotStatusMissing    SlotStatus = "missing"
)

// ResolvedSlot binds one declared slot to its winning asset. missing is a
// valid terminal value, not an error.
type ResolvedSlot struct {
	SlotKey      string     `json:"slot_key"`
	AssetID      *uuid.UUID `json:"asset_id,omitempty"`
	URL          string     `json:"url,omitempty"`
	Status       SlotStatus `json:"status"`
	SourceTier   Tier       `json:"source_tier,omitempty"`
	MatchedTheme string     `json:"matched_theme,omitempty"`
}

// Candidate is one tiered, theme-scored contender for a slot.
type Candidate struct {
	Meta       AssetMeta
	Tier       Tier
	ThemeMatch bool
}

// rankCandidates orders contenders best-first: lower tier, then theme match,
// then recency, then asset id as a stable last resort so equal timestamps
// cannot flip between runs.
func rankCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.ThemeMatch != b.ThemeMatch {
			return a.ThemeMatch
		}
		if !a.Meta.Asset.CreatedAt.Equal(b.Meta.Asset.CreatedAt) {
			return a.Meta.Asset.CreatedAt.After(b.Meta.Asset.CreatedAt)
		}
		return a.Meta.Asset.ID.String() > b.Meta.Asset.ID.String()
	})
}

// Combine picks the slot winner: the best approved candidate, regardless of
// the order candidates arrived in. When only pending candidates exist the
// slot reports generating, distinct from missing.
func Combine(slot SlotDefinition, candidates []Candidate) ResolvedSlot {
	resolved := ResolvedSlot{SlotKey: slot.SlotKey, Status: SlotStatusMissing}
	if len(candidates) == 0 {
		return resolved
	}

	rankCandidates(candidates)
	var bestPending *Candidate
	for i := range candidates {
		c := &candidates[i]
		switch c.Meta.Asset.Status {
		case types.AssetStatusApproved:
			id := c.Meta.Asset.ID
			resolved.AssetID = &id
			resolved.URL = c.Meta.Asset.FileURL
			resolved.Status = SlotStatusReady
			resolved.SourceTier = c.Tier
			if c.ThemeMatch {
				resolved.MatchedTheme = c.Meta.Theme
			}
			return resolved
		case types.AssetStatusPending:
			if bestPending == nil {
				bestPending = c
			}
		}
	}
	if bestPending != nil {
		id := bestPending.Meta.Asset.ID
		resolved.AssetID = &id
		resolved.URL = bestPending.Meta.Asset.FileURL
		resolved.Status = SlotStatusGenerating
		resolved.SourceTier = bestPending.Tier
		if bestPending.ThemeMatch {
			resolved.MatchedTheme = bestPending.Meta.Theme
		}
	}
	return resolved
}
