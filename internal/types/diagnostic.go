package types

import "github.com/google/uuid"

// DiagnosticCode enumerates every non-fatal condition the resolvers report.
// All of these travel back to the caller as structured data; none of them
// abort a resolution or reconciliation run.
type DiagnosticCode string

const (
	DiagMissingRequiredSlot        DiagnosticCode = "MissingRequiredSlot"
	DiagThemeMismatch              DiagnosticCode = "ThemeMismatch"
	DiagInsufficientLetterCoverage DiagnosticCode = "InsufficientLetterCoverage"
	DiagAssignmentConflict         DiagnosticCode = "AssignmentConflict"
	DiagOrphanedApproval           DiagnosticCode = "OrphanedApproval"
	DiagUnclassifiedAsset          DiagnosticCode = "UnclassifiedAsset"
	DiagSlotGenerating             DiagnosticCode = "SlotGenerating"
	DiagBelowCompletionThreshold   DiagnosticCode = "BelowCompletionThreshold"
)

// Diagnostic is one structured finding. Only the fields relevant to the code
// are populated; Message is human-oriented and never the sole content.
type Diagnostic struct {
	Code            DiagnosticCode `json:"code"`
	SlotKey         string         `json:"slot_key,omitempty"`
	AssetID         *uuid.UUID     `json:"asset_id,omitempty"`
	VideoID         *uuid.UUID     `json:"video_id,omitempty"`
	AssignmentID    *uuid.UUID     `json:"assignment_id,omitempty"`
	AvailableThemes []string       `json:"available_themes,omitempty"`
	Available       int            `json:"available,omitempty"`
	Required        int            `json:"required,omitempty"`
	Message         string         `json:"message,omitempty"`
}
