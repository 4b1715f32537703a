package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/types"
)

type ApprovedVideoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, videos []*types.ApprovedVideo) ([]*types.ApprovedVideo, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.ApprovedVideo, error)
	ListByApprovalStatus(ctx context.Context, tx *gorm.DB, approvalStatus string) ([]*types.ApprovedVideo, error)
	// MarkPublished flips is_published, guarded on it still being false.
	MarkPublished(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (bool, error)
}

type approvedVideoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApprovedVideoRepo(db *gorm.DB, baseLog *logger.Logger) ApprovedVideoRepo {
	repoLog := baseLog.With("repo", "ApprovedVideoRepo")
	return &approvedVideoRepo{db: db, log: repoLog}
}

func (r *approvedVideoRepo) Create(ctx context.Context, tx *gorm.DB, videos []*types.ApprovedVideo) ([]*types.ApprovedVideo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(videos) == 0 {
		return []*types.ApprovedVideo{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *approvedVideoRepo) GetByIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.ApprovedVideo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ApprovedVideo
	if len(videoIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", videoIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *approvedVideoRepo) ListByApprovalStatus(ctx context.Context, tx *gorm.DB, approvalStatus string) ([]*types.ApprovedVideo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ApprovedVideo
	if err := transaction.WithContext(ctx).
		Where("approval_status = ?", approvalStatus).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *approvedVideoRepo) MarkPublished(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	result := transaction.WithContext(ctx).
		Model(&types.ApprovedVideo{}).
		Where("id = ?", videoID).
		Where("is_published = ?", false).
		Update("is_published", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
