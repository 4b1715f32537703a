package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/types"
)

// slotKeyFields are the current-generation metadata fields that may carry a
// slot key, one per media family. legacyFields are the older generations.
var slotKeyFields = []string{"imageType", "assetPurpose", "videoType"}

// SlotKeyQuery describes one catalog lookup: explicit slot-key values plus the
// legacy section/category spellings that mean the same slot.
type SlotKeyQuery struct {
	SlotKeys   []string
	Sections   []string
	Categories []string
}

type AssetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, assets []*types.Asset) ([]*types.Asset, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, assetIDs []uuid.UUID) ([]*types.Asset, error)
	// FindBySlotKeys returns candidate rows whose metadata names the slot
	// through any schema generation: explicit imageType/assetPurpose/videoType,
	// or legacy section/category values.
	FindBySlotKeys(ctx context.Context, tx *gorm.DB, mediaType string, statuses []string, q SlotKeyQuery) ([]*types.Asset, error)
	// FindUntypedImages returns image rows from the oldest schema generation:
	// a free-text prompt and no explicit or legacy slot field at all. Slot
	// inference for these happens in the metadata normalizer.
	FindUntypedImages(ctx context.Context, tx *gorm.DB, statuses []string) ([]*types.Asset, error)
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	repoLog := baseLog.With("repo", "AssetRepo")
	return &assetRepo{db: db, log: repoLog}
}

func (r *assetRepo) Create(ctx context.Context, tx *gorm.DB, assets []*types.Asset) ([]*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(assets) == 0 {
		return []*types.Asset{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepo) GetByIDs(ctx context.Context, tx *gorm.DB, assetIDs []uuid.UUID) ([]*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Asset
	if len(assetIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", assetIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assetRepo) FindBySlotKeys(ctx context.Context, tx *gorm.DB, mediaType string, statuses []string, q SlotKeyQuery) ([]*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Asset
	if len(q.SlotKeys) == 0 && len(q.Sections) == 0 && len(q.Categories) == 0 {
		return results, nil
	}

	match := transaction.Session(&gorm.Session{NewDB: true})
	first := true
	add := func(value, field string) {
		cond := datatypes.JSONQuery("metadata").Equals(value, field)
		if first {
			match = match.Where(cond)
			first = false
			return
		}
		match = match.Or(cond)
	}
	for _, key := range q.SlotKeys {
		for _, field := range slotKeyFields {
			add(key, field)
		}
	}
	for _, section := range q.Sections {
		add(section, "section")
	}
	for _, category := range q.Categories {
		add(category, "category")
	}

	if err := transaction.WithContext(ctx).
		Where("media_type = ?", mediaType).
		Where("status IN ?", statuses).
		Where(match).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assetRepo) FindUntypedImages(ctx context.Context, tx *gorm.DB, statuses []string) ([]*types.Asset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Where("media_type = ?", types.MediaTypeImage).
		Where("status IN ?", statuses).
		Where(datatypes.JSONQuery("metadata").HasKey("prompt"))
	for _, field := range slotKeyFields {
		query = query.Not(datatypes.JSONQuery("metadata").HasKey(field))
	}
	query = query.
		Not(datatypes.JSONQuery("metadata").HasKey("section")).
		Not(datatypes.JSONQuery("metadata").HasKey("category"))

	var results []*types.Asset
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
