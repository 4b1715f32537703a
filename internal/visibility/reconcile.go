package visibility

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lumokids/storytime-backend/internal/types"
)

// reconcileConcurrency bounds the diagnosis fan-out over approved videos.
const reconcileConcurrency = 8

// PlannedAction is one status advance the diagnosis pass proposes. Nothing is
// written until Apply runs it under its compare-and-set guard.
type PlannedAction struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	VideoID      uuid.UUID `json:"video_id"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
}

type ReconcileReport struct {
	CheckedVideos int                `json:"checked_videos"`
	Actions       []PlannedAction    `json:"actions,omitempty"`
	Diagnostics   []types.Diagnostic `json:"diagnostics,omitempty"`
}

type ApplyResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

func (s *service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	approved, err := s.approved.ListByApprovalStatus(ctx, nil, types.ApprovalStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved videos: %w", err)
	}

	report := &ReconcileReport{CheckedVideos: len(approved)}
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(reconcileConcurrency)
	for _, video := range approved {
		group.Go(func() error {
			action, diag, err := s.diagnoseVideo(groupCtx, video)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if action != nil {
				report.Actions = append(report.Actions, *action)
			}
			if diag != nil {
				report.Diagnostics = append(report.Diagnostics, *diag)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	active, err := s.assignments.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	report.Diagnostics = append(report.Diagnostics, s.detectConflicts(active)...)

	sort.Slice(report.Actions, func(i, j int) bool {
		return report.Actions[i].VideoID.String() < report.Actions[j].VideoID.String()
	})
	sort.SliceStable(report.Diagnostics, func(i, j int) bool {
		a, b := report.Diagnostics[i], report.Diagnostics[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.VideoID != nil && b.VideoID != nil {
			return a.VideoID.String() < b.VideoID.String()
		}
		return false
	})
	return report, nil
}

// diagnoseVideo checks one approved video against its assignments. A missing
// assignment is an orphaned approval; a draft one yields a planned advance.
// No target child is ever guessed for an orphan.
func (s *service) diagnoseVideo(ctx context.Context, video *types.ApprovedVideo) (*PlannedAction, *types.Diagnostic, error) {
	assignments, err := s.assignments.ListByVideoIDs(ctx, nil, []uuid.UUID{video.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("list assignments for video %s: %w", video.ID, err)
	}

	if len(assignments) == 0 {
		videoID := video.ID
		return nil, &types.Diagnostic{
			Code:    types.DiagOrphanedApproval,
			VideoID: &videoID,
			Message: orphanMessage(video),
		}, nil
	}

	var draft *types.VideoAssignment
	for _, assignment := range assignments {
		switch assignment.Status {
		case types.AssignmentStatusPublished:
			// Already published, nothing to advance.
			return nil, nil, nil
		case types.AssignmentStatusDraft:
			if draft == nil || assignment.ID.String() < draft.ID.String() {
				draft = assignment
			}
		}
	}
	if draft == nil {
		// Only archived assignments remain; archiving is terminal.
		return nil, nil, nil
	}
	return &PlannedAction{
		AssignmentID: draft.ID,
		VideoID:      video.ID,
		FromStatus:   types.AssignmentStatusDraft,
		ToStatus:     types.AssignmentStatusPublished,
	}, nil, nil
}

// orphanMessage names the kind of assignment the video's personalization
// level calls for, so an operator knows what to create by hand.
func orphanMessage(video *types.ApprovedVideo) string {
	switch video.PersonalizationLevel {
	case types.PersonalizationChild:
		return "approved child-personalized video has no individual assignment; none fabricated"
	case types.PersonalizationTheme:
		return "approved theme-personalized video has no theme assignment; none fabricated"
	case types.PersonalizationGeneric:
		return "approved generic video has no general assignment; none fabricated"
	default:
		return "approved video has no assignment; none fabricated"
	}
}

func (s *service) Apply(ctx context.Context, report *ReconcileReport) (*ApplyResult, error) {
	result := &ApplyResult{}
	for _, action := range report.Actions {
		ok, err := s.assignments.AdvanceStatus(ctx, nil, action.AssignmentID, action.FromStatus, action.ToStatus)
		if err != nil {
			return nil, fmt.Errorf("advance assignment %s: %w", action.AssignmentID, err)
		}
		if !ok {
			// Guard failed: archived meanwhile or raced an admin edit.
			result.Skipped++
			s.log.Warn("assignment advance skipped, status guard failed",
				"assignment_id", action.AssignmentID,
				"from", action.FromStatus,
				"to", action.ToStatus,
			)
			continue
		}
		result.Applied++
		if action.ToStatus == types.AssignmentStatusPublished {
			if _, err := s.approved.MarkPublished(ctx, nil, action.VideoID); err != nil {
				return nil, fmt.Errorf("mark video %s published: %w", action.VideoID, err)
			}
		}
	}
	s.log.Info("reconciliation applied", "applied", result.Applied, "skipped", result.Skipped)
	return result, nil
}
