package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/types"
)

type ChildRepo interface {
	Create(ctx context.Context, tx *gorm.DB, children []*types.Child) ([]*types.Child, error)
	GetByID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*types.Child, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Child, error)
}

type childRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChildRepo(db *gorm.DB, baseLog *logger.Logger) ChildRepo {
	repoLog := baseLog.With("repo", "ChildRepo")
	return &childRepo{db: db, log: repoLog}
}

func (r *childRepo) Create(ctx context.Context, tx *gorm.DB, children []*types.Child) ([]*types.Child, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(children) == 0 {
		return []*types.Child{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

func (r *childRepo) GetByID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*types.Child, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Child
	if err := transaction.WithContext(ctx).
		Where("id = ?", childID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *childRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Child, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Child
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
