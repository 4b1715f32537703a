package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/types"
)

type VideoAssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, assignments []*types.VideoAssignment) ([]*types.VideoAssignment, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, assignmentIDs []uuid.UUID) ([]*types.VideoAssignment, error)
	// ListActive returns non-archived active assignments across all videos.
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.VideoAssignment, error)
	ListByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.VideoAssignment, error)
	// AdvanceStatus is a compare-and-set transition: the row moves from->to
	// only if it still holds the expected from status. Returns false when the
	// guard failed (row gone, archived, or already advanced by someone else).
	AdvanceStatus(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID, from, to string) (bool, error)
}

type videoAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) VideoAssignmentRepo {
	repoLog := baseLog.With("repo", "VideoAssignmentRepo")
	return &videoAssignmentRepo{db: db, log: repoLog}
}

func (r *videoAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignments []*types.VideoAssignment) ([]*types.VideoAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(assignments) == 0 {
		return []*types.VideoAssignment{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *videoAssignmentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, assignmentIDs []uuid.UUID) ([]*types.VideoAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.VideoAssignment
	if len(assignmentIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", assignmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoAssignmentRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.VideoAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.VideoAssignment
	if err := transaction.WithContext(ctx).
		Where("is_active = ?", true).
		Where("status <> ?", types.AssignmentStatusArchived).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoAssignmentRepo) ListByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.VideoAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.VideoAssignment
	if len(videoIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("video_id IN ?", videoIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoAssignmentRepo) AdvanceStatus(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID, from, to string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]interface{}{"status": to}
	if to == types.AssignmentStatusPublished {
		now := time.Now().UTC()
		updates["publish_date"] = &now
	}

	result := transaction.WithContext(ctx).
		Model(&types.VideoAssignment{}).
		Where("id = ?", assignmentID).
		Where("status = ?", from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		r.log.Debug("AdvanceStatus guard failed", "assignment_id", assignmentID, "from", from, "to", to)
		return false, nil
	}
	return true, nil
}
