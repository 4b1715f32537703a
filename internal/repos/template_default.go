package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/types"
)

type TemplateDefaultRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, def *types.TemplateDefault) error
	GetByTemplateType(ctx context.Context, tx *gorm.DB, templateType string) (*types.TemplateDefault, error)
}

type templateDefaultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateDefaultRepo(db *gorm.DB, baseLog *logger.Logger) TemplateDefaultRepo {
	repoLog := baseLog.With("repo", "TemplateDefaultRepo")
	return &templateDefaultRepo{db: db, log: repoLog}
}

func (r *templateDefaultRepo) Upsert(ctx context.Context, tx *gorm.DB, def *types.TemplateDefault) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "template_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_asset_class", "updated_at"}),
		}).
		Create(def).Error
}

func (r *templateDefaultRepo) GetByTemplateType(ctx context.Context, tx *gorm.DB, templateType string) (*types.TemplateDefault, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.TemplateDefault
	if err := transaction.WithContext(ctx).
		Where("template_type = ?", templateType).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}
