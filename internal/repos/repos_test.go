package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/types"
)

// testSchema mirrors the migrated tables without the postgres-only column
// defaults, so the queries run against in-memory sqlite.
const testSchema = `
CREATE TABLE asset (
  id text PRIMARY KEY,
  media_type text NOT NULL,
  status text NOT NULL,
  file_url text,
  metadata text,
  created_at datetime,
  updated_at datetime,
  deleted_at datetime
);
CREATE TABLE child (
  id text PRIMARY KEY,
  name text NOT NULL,
  primary_interest text,
  created_at datetime,
  updated_at datetime,
  deleted_at datetime
);
CREATE TABLE video_assignment (
  id text PRIMARY KEY,
  video_id text NOT NULL,
  assignment_type text NOT NULL,
  child_id text,
  theme text,
  status text NOT NULL,
  is_active boolean NOT NULL,
  publish_date datetime,
  created_at datetime,
  updated_at datetime,
  deleted_at datetime
);
CREATE TABLE approved_video (
  id text PRIMARY KEY,
  approval_status text NOT NULL,
  is_published boolean NOT NULL,
  personalization_level text,
  child_theme text,
  created_at datetime,
  updated_at datetime,
  deleted_at datetime
);
CREATE TABLE template_default (
  template_type text PRIMARY KEY,
  display_asset_class text NOT NULL,
  created_at datetime,
  updated_at datetime
);
`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(testSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func mustMetadata(t *testing.T, fields map[string]interface{}) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	return datatypes.JSON(raw)
}

func seedAsset(t *testing.T, repo AssetRepo, mediaType, status string, metadata map[string]interface{}) *types.Asset {
	t.Helper()
	asset := &types.Asset{
		ID:        uuid.New(),
		MediaType: mediaType,
		Status:    status,
		FileURL:   "https://cdn.example.com/" + uuid.NewString(),
		Metadata:  mustMetadata(t, metadata),
	}
	if _, err := repo.Create(context.Background(), nil, []*types.Asset{asset}); err != nil {
		t.Fatalf("seed asset: %v", err)
	}
	return asset
}

func assetIDs(assets []*types.Asset) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(assets))
	for _, asset := range assets {
		out[asset.ID] = true
	}
	return out
}

func TestAssetRepoFindBySlotKeysAcrossGenerations(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepo(db, logger.Nop())
	ctx := context.Background()

	explicit := seedAsset(t, repo, types.MediaTypeVideo, types.AssetStatusApproved, map[string]interface{}{"videoType": "introVideo", "theme": "dog"})
	section := seedAsset(t, repo, types.MediaTypeVideo, types.AssetStatusPending, map[string]interface{}{"section": "introVideo"})
	category := seedAsset(t, repo, types.MediaTypeVideo, types.AssetStatusApproved, map[string]interface{}{"category": "letter AND theme"})
	rejected := seedAsset(t, repo, types.MediaTypeVideo, types.AssetStatusRejected, map[string]interface{}{"videoType": "introVideo"})
	otherSlot := seedAsset(t, repo, types.MediaTypeVideo, types.AssetStatusApproved, map[string]interface{}{"videoType": "endingVideo"})
	wrongMedia := seedAsset(t, repo, types.MediaTypeImage, types.AssetStatusApproved, map[string]interface{}{"imageType": "introVideo"})

	rows, err := repo.FindBySlotKeys(ctx, nil, types.MediaTypeVideo,
		[]string{types.AssetStatusApproved, types.AssetStatusPending},
		SlotKeyQuery{
			SlotKeys:   []string{"introVideo"},
			Sections:   []string{"introVideo"},
			Categories: []string{"letter AND theme", "letter-and-theme"},
		})
	if err != nil {
		t.Fatalf("FindBySlotKeys: %v", err)
	}

	got := assetIDs(rows)
	for _, want := range []*types.Asset{explicit, section, category} {
		if !got[want.ID] {
			t.Fatalf("row %s missing from result set", want.ID)
		}
	}
	for _, excluded := range []*types.Asset{rejected, otherSlot, wrongMedia} {
		if got[excluded.ID] {
			t.Fatalf("row %s should have been filtered out", excluded.ID)
		}
	}
}

func TestAssetRepoFindBySlotKeysEmptyQuery(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepo(db, logger.Nop())

	seedAsset(t, repo, types.MediaTypeVideo, types.AssetStatusApproved, map[string]interface{}{"videoType": "introVideo"})

	rows, err := repo.FindBySlotKeys(context.Background(), nil, types.MediaTypeVideo, []string{types.AssetStatusApproved}, SlotKeyQuery{})
	if err != nil {
		t.Fatalf("FindBySlotKeys: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("empty query must match nothing, got %d rows", len(rows))
	}
}

func TestAssetRepoFindUntypedImages(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepo(db, logger.Nop())
	ctx := context.Background()

	promptOnly := seedAsset(t, repo, types.MediaTypeImage, types.AssetStatusApproved, map[string]interface{}{"prompt": "a street sign", "letter": "N"})
	typed := seedAsset(t, repo, types.MediaTypeImage, types.AssetStatusApproved, map[string]interface{}{"prompt": "a street sign", "imageType": "signImage"})
	sectioned := seedAsset(t, repo, types.MediaTypeImage, types.AssetStatusApproved, map[string]interface{}{"prompt": "a street sign", "section": "introVideo"})
	noPrompt := seedAsset(t, repo, types.MediaTypeImage, types.AssetStatusApproved, map[string]interface{}{"letter": "N"})
	video := seedAsset(t, repo, types.MediaTypeVideo, types.AssetStatusApproved, map[string]interface{}{"prompt": "a street sign"})

	rows, err := repo.FindUntypedImages(ctx, nil, []string{types.AssetStatusApproved, types.AssetStatusPending})
	if err != nil {
		t.Fatalf("FindUntypedImages: %v", err)
	}

	got := assetIDs(rows)
	if !got[promptOnly.ID] {
		t.Fatalf("prompt-only row missing")
	}
	for _, excluded := range []*types.Asset{typed, sectioned, noPrompt, video} {
		if got[excluded.ID] {
			t.Fatalf("row %s should have been filtered out", excluded.ID)
		}
	}
}

func TestAssetRepoGetByIDsEmptyInput(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepo(db, logger.Nop())

	rows, err := repo.GetByIDs(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestVideoAssignmentRepoAdvanceStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewVideoAssignmentRepo(db, logger.Nop())
	ctx := context.Background()

	assignment := &types.VideoAssignment{
		ID:             uuid.New(),
		VideoID:        uuid.New(),
		AssignmentType: types.AssignmentTypeGeneral,
		Status:         types.AssignmentStatusDraft,
		IsActive:       true,
	}
	if _, err := repo.Create(ctx, nil, []*types.VideoAssignment{assignment}); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}

	ok, err := repo.AdvanceStatus(ctx, nil, assignment.ID, types.AssignmentStatusDraft, types.AssignmentStatusPublished)
	if err != nil {
		t.Fatalf("AdvanceStatus: %v", err)
	}
	if !ok {
		t.Fatalf("first advance should pass the guard")
	}

	rows, err := repo.GetByIDs(ctx, nil, []uuid.UUID{assignment.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload assignment: %v (%d rows)", err, len(rows))
	}
	if rows[0].Status != types.AssignmentStatusPublished {
		t.Fatalf("status=%s, want published", rows[0].Status)
	}
	if rows[0].PublishDate == nil {
		t.Fatalf("publish date not stamped on publish")
	}

	// Replaying the same transition finds the guard already consumed.
	ok, err = repo.AdvanceStatus(ctx, nil, assignment.ID, types.AssignmentStatusDraft, types.AssignmentStatusPublished)
	if err != nil {
		t.Fatalf("AdvanceStatus replay: %v", err)
	}
	if ok {
		t.Fatalf("replay must fail the status guard")
	}
}

func TestVideoAssignmentRepoListActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewVideoAssignmentRepo(db, logger.Nop())
	ctx := context.Background()

	active := &types.VideoAssignment{ID: uuid.New(), VideoID: uuid.New(), AssignmentType: types.AssignmentTypeGeneral, Status: types.AssignmentStatusDraft, IsActive: true}
	archived := &types.VideoAssignment{ID: uuid.New(), VideoID: uuid.New(), AssignmentType: types.AssignmentTypeGeneral, Status: types.AssignmentStatusArchived, IsActive: true}
	inactive := &types.VideoAssignment{ID: uuid.New(), VideoID: uuid.New(), AssignmentType: types.AssignmentTypeGeneral, Status: types.AssignmentStatusPublished, IsActive: false}
	if _, err := repo.Create(ctx, nil, []*types.VideoAssignment{active, archived, inactive}); err != nil {
		t.Fatalf("seed assignments: %v", err)
	}

	rows, err := repo.ListActive(ctx, nil)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != active.ID {
		t.Fatalf("ListActive returned %d rows, want only the active draft", len(rows))
	}
}

func TestApprovedVideoRepoMarkPublished(t *testing.T) {
	db := newTestDB(t)
	repo := NewApprovedVideoRepo(db, logger.Nop())
	ctx := context.Background()

	video := &types.ApprovedVideo{ID: uuid.New(), ApprovalStatus: types.ApprovalStatusApproved}
	if _, err := repo.Create(ctx, nil, []*types.ApprovedVideo{video}); err != nil {
		t.Fatalf("seed video: %v", err)
	}

	ok, err := repo.MarkPublished(ctx, nil, video.ID)
	if err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	if !ok {
		t.Fatalf("first MarkPublished should flip the flag")
	}

	ok, err = repo.MarkPublished(ctx, nil, video.ID)
	if err != nil {
		t.Fatalf("MarkPublished replay: %v", err)
	}
	if ok {
		t.Fatalf("replay must fail the is_published guard")
	}
}

func TestChildRepoGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewChildRepo(db, logger.Nop())

	_, err := repo.GetByID(context.Background(), nil, uuid.New())
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestTemplateDefaultRepoUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewTemplateDefaultRepo(db, logger.Nop())
	ctx := context.Background()

	if err := repo.Upsert(ctx, nil, &types.TemplateDefault{TemplateType: "lullaby", DisplayAssetClass: "moon-and-stars"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, nil, &types.TemplateDefault{TemplateType: "lullaby", DisplayAssetClass: "night-sky"}); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	def, err := repo.GetByTemplateType(ctx, nil, "lullaby")
	if err != nil {
		t.Fatalf("GetByTemplateType: %v", err)
	}
	if def.DisplayAssetClass != "night-sky" {
		t.Fatalf("DisplayAssetClass=%q, want the upserted night-sky", def.DisplayAssetClass)
	}

	_, err = repo.GetByTemplateType(ctx, nil, "letter-hunt")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound for missing template", err)
	}
}
