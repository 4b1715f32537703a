package visibility

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/lumokids/storytime-backend/internal/normalization"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/repos"
	"github.com/lumokids/storytime-backend/internal/types"
)

// VisibilityReport answers "which published videos can this child see" along
// with any assignment conflicts detected while answering it.
type VisibilityReport struct {
	ChildID     uuid.UUID          `json:"child_id"`
	VideoIDs    []uuid.UUID        `json:"video_ids"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty"`
}

type Service interface {
	// VisibleVideos computes effective visibility for one child: the union of
	// active published general, individual, and theme-matched assignments.
	VisibleVideos(ctx context.Context, childID uuid.UUID) (*VisibilityReport, error)
	// Reconcile is the pure diagnosis pass: planned status advances plus
	// orphaned approvals and conflicts. It writes nothing.
	Reconcile(ctx context.Context) (*ReconcileReport, error)
	// Apply performs the planned advances from a Reconcile report, each one
	// guarded by a compare-and-set on the assignment's current status.
	Apply(ctx context.Context, report *ReconcileReport) (*ApplyResult, error)
}

type service struct {
	children    repos.ChildRepo
	assignments repos.VideoAssignmentRepo
	approved    repos.ApprovedVideoRepo
	themes      *normalization.ThemeNormalizer
	log         *logger.Logger
}

func NewService(children repos.ChildRepo, assignments repos.VideoAssignmentRepo, approved repos.ApprovedVideoRepo, themes *normalization.ThemeNormalizer, baseLog *logger.Logger) Service {
	serviceLog := baseLog.With("service", "VisibilityService")
	return &service{
		children:    children,
		assignments: assignments,
		approved:    approved,
		themes:      themes,
		log:         serviceLog,
	}
}

func (s *service) VisibleVideos(ctx context.Context, childID uuid.UUID) (*VisibilityReport, error) {
	child, err := s.children.GetByID(ctx, nil, childID)
	if err != nil {
		return nil, fmt.Errorf("load child %s: %w", childID, err)
	}

	active, err := s.assignments.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}

	visible := make(map[uuid.UUID]bool)
	for _, assignment := range active {
		if assignment.Status != types.AssignmentStatusPublished {
			continue
		}
		switch assignment.AssignmentType {
		case types.AssignmentTypeGeneral:
			visible[assignment.VideoID] = true
		case types.AssignmentTypeIndividual:
			if assignment.ChildID != nil && *assignment.ChildID == child.ID {
				visible[assignment.VideoID] = true
			}
		case types.AssignmentTypeTheme:
			if assignment.Theme != nil && child.PrimaryInterest != "" && s.themes.Equal(*assignment.Theme, child.PrimaryInterest) {
				visible[assignment.VideoID] = true
			}
		}
	}

	report := &VisibilityReport{
		ChildID:     child.ID,
		VideoIDs:    sortedIDs(visible),
		Diagnostics: s.detectConflicts(active),
	}
	return report, nil
}

// detectConflicts flags videos where an active general assignment coexists
// with an active individual one. The general row widens visibility to every
// child, which defeats whatever the individual row meant to restrict; the
// general assignment is named as the probable error. Reported, never
// auto-resolved: archiving a general assignment is a destructive act that
// needs explicit caller intent.
func (s *service) detectConflicts(assignments []*types.VideoAssignment) []types.Diagnostic {
	type videoAssignments struct {
		general    *types.VideoAssignment
		individual *types.VideoAssignment
	}
	byVideo := make(map[uuid.UUID]*videoAssignments)
	var videoOrder []uuid.UUID
	for _, assignment := range assignments {
		va, ok := byVideo[assignment.VideoID]
		if !ok {
			va = &videoAssignments{}
			byVideo[assignment.VideoID] = va
			videoOrder = append(videoOrder, assignment.VideoID)
		}
		switch assignment.AssignmentType {
		case types.AssignmentTypeGeneral:
			if va.general == nil {
				va.general = assignment
			}
		case types.AssignmentTypeIndividual:
			if va.individual == nil {
				va.individual = assignment
			}
		}
	}

	sort.Slice(videoOrder, func(i, j int) bool { return videoOrder[i].String() < videoOrder[j].String() })
	var diags []types.Diagnostic
	for _, videoID := range videoOrder {
		va := byVideo[videoID]
		if va.general == nil || va.individual == nil {
			continue
		}
		vid := videoID
		generalID := va.general.ID
		diags = append(diags, types.Diagnostic{
			Code:         types.DiagAssignmentConflict,
			VideoID:      &vid,
			AssignmentID: &generalID,
			Message:      "active general assignment coexists with an individual assignment; the general row is the probable error",
		})
	}
	return diags
}

func sortedIDs(set map[uuid.UUID]bool) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
