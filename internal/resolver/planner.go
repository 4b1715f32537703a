package resolver

import (
	"strings"

	"github.com/lumokids/storytime-backend/internal/normalization"
	"github.com/lumokids/storytime-backend/internal/repos"
	"github.com/lumokids/storytime-backend/internal/types"
)

// Tier is a candidate specificity level. Lower wins.
type Tier int

const (
	TierChildLetter Tier = iota + 1
	TierLetter
	TierTheme
	TierGeneric
)

func (t Tier) String() string {
	switch t {
	case TierChildLetter:
		return "child+letter"
	case TierLetter:
		return "letter"
	case TierTheme:
		return "theme"
	case TierGeneric:
		return "generic"
	default:
		return "none"
	}
}

// candidateStatuses are the only statuses eligible as candidates. Pending rows
// stay visible so readiness can report in-progress generation, but they can
// never win a slot.
var candidateStatuses = []string{types.AssetStatusApproved, types.AssetStatusPending}

// promptInferredSlots are the image slots reachable through free-text prompt
// inference; their plans also sweep the untyped legacy rows.
var promptInferredSlots = map[string]bool{
	"signImage":    true,
	"bookImage":    true,
	"groceryImage": true,
	"endingImage":  true,
}

// SlotPlan is the ordered query+tier plan for one declared slot.
type SlotPlan struct {
	Slot           SlotDefinition
	Query          repos.SlotKeyQuery
	Tiers          []Tier
	IncludeUntyped bool
}

// BuildPlan lays out, per declared slot, the catalog query (slot-key equality
// with OR-alternatives across every schema generation) and the ordered tiers
// its matchDimensions allow. Ending-type letter-only slots get the letter
// tier and nothing else.
func BuildPlan(schema TemplateSchema, req TemplateRequest) []SlotPlan {
	plans := make([]SlotPlan, 0, len(schema.Slots))
	for _, slot := range schema.Slots {
		plans = append(plans, SlotPlan{
			Slot:           slot,
			Query:          slotQuery(slot),
			Tiers:          slotTiers(slot, req),
			IncludeUntyped: slot.MediaType == types.MediaTypeImage && promptInferredSlots[slot.SlotKey],
		})
	}
	return plans
}

func slotQuery(slot SlotDefinition) repos.SlotKeyQuery {
	q := repos.SlotKeyQuery{SlotKeys: []string{slot.SlotKey}}
	for section, slotKey := range sectionSlots {
		if slotKey == slot.SlotKey {
			q.Sections = append(q.Sections, section)
		}
	}
	for category, slotKey := range categorySlots {
		if slotKey == slot.SlotKey {
			q.Categories = append(q.Categories, category)
		}
	}
	return q
}

func slotTiers(slot SlotDefinition, req TemplateRequest) []Tier {
	if slot.LetterOnly {
		return []Tier{TierLetter}
	}
	var tiers []Tier
	if slot.HasDimension(DimChild) && (!slot.HasDimension(DimLetter) || req.TargetLetter != "") {
		tiers = append(tiers, TierChildLetter)
	}
	if slot.HasDimension(DimLetter) && req.TargetLetter != "" {
		tiers = append(tiers, TierLetter)
	}
	if slot.HasDimension(DimTheme) && req.Theme != "" {
		tiers = append(tiers, TierTheme)
	}
	return append(tiers, TierGeneric)
}

// CandidateTier places one normalized candidate on the most specific tier the
// plan allows, or reports it ineligible for the slot.
func CandidateTier(plan SlotPlan, req TemplateRequest, meta AssetMeta, themes *normalization.ThemeNormalizer) (Tier, bool) {
	for _, tier := range plan.Tiers {
		switch tier {
		case TierChildLetter:
			if meta.ChildName != "" && nameEqual(meta.ChildName, req.ChildName) && childTierLetterMatch(plan.Slot, req, meta) {
				return TierChildLetter, true
			}
		case TierLetter:
			if meta.ChildName == "" && letterEqual(meta.Letter, req.TargetLetter) {
				return TierLetter, true
			}
		case TierTheme:
			if meta.ChildName == "" && meta.Letter == "" && meta.Theme != "" && themes.Equal(meta.Theme, req.Theme) {
				return TierTheme, true
			}
		case TierGeneric:
			if meta.ChildName == "" && meta.Letter == "" && meta.Theme == "" {
				return TierGeneric, true
			}
		}
	}
	return 0, false
}

// childTierLetterMatch completes the child-tier test: letter-dimensioned slots
// bind on name and letter together, letterless child slots on name alone.
func childTierLetterMatch(slot SlotDefinition, req TemplateRequest, meta AssetMeta) bool {
	if slot.HasDimension(DimLetter) && req.TargetLetter != "" {
		return letterEqual(meta.Letter, req.TargetLetter)
	}
	return meta.Letter == ""
}

func nameEqual(a, b string) bool {
	return normalization.Fold(a) == normalization.Fold(b)
}

func letterEqual(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
