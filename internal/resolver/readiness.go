package resolver

import (
	"fmt"
	"math"

	"github.com/lumokids/storytime-backend/internal/types"
)

// Readiness is the per-template completion verdict gating generation.
type Readiness struct {
	CanGenerate       bool               `json:"can_generate"`
	ReadyCount        int                `json:"ready_count"`
	TotalSlots        int                `json:"total_slots"`
	Completion        float64            `json:"completion"`
	CompletionPercent int                `json:"completion_percent"`
	BlockingReasons   []types.Diagnostic `json:"blocking_reasons,omitempty"`
}

// EvaluateReadiness applies the template's gating contract to the resolved
// slot map: every gating slot ready, no required slot missing, completion
// fraction at threshold, and (name-video) letter-pair coverage at the
// unique-letter requirement. Reasons are structured, one per failed check.
func EvaluateReadiness(schema TemplateSchema, slotOrder []string, slots map[string]ResolvedSlot, coverage *LetterCoverage) Readiness {
	readiness := Readiness{TotalSlots: len(slotOrder)}
	for _, slotKey := range slotOrder {
		if slots[slotKey].Status == SlotStatusReady {
			readiness.ReadyCount++
		}
	}
	if readiness.TotalSlots > 0 {
		readiness.Completion = float64(readiness.ReadyCount) / float64(readiness.TotalSlots)
	}
	readiness.CompletionPercent = int(math.Round(readiness.Completion * 100))

	blockedMissing := make(map[string]bool)
	for _, gatingKey := range schema.Gating.GatingSlots {
		slot, ok := slots[gatingKey]
		if !ok || slot.Status == SlotStatusMissing {
			readiness.BlockingReasons = append(readiness.BlockingReasons, types.Diagnostic{
				Code:    types.DiagMissingRequiredSlot,
				SlotKey: gatingKey,
				Message: "gating slot has no ready asset",
			})
			blockedMissing[gatingKey] = true
			continue
		}
		if slot.Status == SlotStatusGenerating {
			readiness.BlockingReasons = append(readiness.BlockingReasons, types.Diagnostic{
				Code:    types.DiagSlotGenerating,
				SlotKey: gatingKey,
				AssetID: slot.AssetID,
				Message: "gating slot asset is still generating",
			})
		}
	}

	// A required slot with no asset blocks generation even when it is not a
	// gating slot and the completion fraction clears the threshold.
	for _, def := range schema.Slots {
		if !def.Required || blockedMissing[def.SlotKey] {
			continue
		}
		slot, ok := slots[def.SlotKey]
		if !ok || slot.Status == SlotStatusMissing {
			readiness.BlockingReasons = append(readiness.BlockingReasons, types.Diagnostic{
				Code:    types.DiagMissingRequiredSlot,
				SlotKey: def.SlotKey,
				Message: "required slot has no eligible asset",
			})
		}
	}

	if schema.Gating.RequireLetterCoverage && coverage != nil {
		if coverage.Pairs < coverage.RequiredPairs {
			readiness.BlockingReasons = append(readiness.BlockingReasons, types.Diagnostic{
				Code:      types.DiagInsufficientLetterCoverage,
				Available: coverage.Pairs,
				Required:  coverage.RequiredPairs,
				Message:   fmt.Sprintf("need %d letter-image pairs, have %d", coverage.RequiredPairs, coverage.Pairs),
			})
		}
	}

	if readiness.Completion < schema.Gating.MinCompletion {
		readiness.BlockingReasons = append(readiness.BlockingReasons, types.Diagnostic{
			Code:      types.DiagBelowCompletionThreshold,
			Available: readiness.CompletionPercent,
			Required:  int(math.Round(schema.Gating.MinCompletion * 100)),
			Message:   fmt.Sprintf("completion %d%% below threshold %d%%", readiness.CompletionPercent, int(math.Round(schema.Gating.MinCompletion*100))),
		})
	}

	readiness.CanGenerate = len(readiness.BlockingReasons) == 0
	return readiness
}
