package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumokids/storytime-backend/internal/normalization"
	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/repos"
	"github.com/lumokids/storytime-backend/internal/types"
)

// fakeAssetRepo mirrors the catalog contract in memory: status-set and media
// type filters plus metadata-path equality across the legacy field names.
type fakeAssetRepo struct {
	assets        []*types.Asset
	recheckStatus map[uuid.UUID]string
	gone          map[uuid.UUID]bool
}

func (f *fakeAssetRepo) Create(_ context.Context, _ *gorm.DB, assets []*types.Asset) ([]*types.Asset, error) {
	f.assets = append(f.assets, assets...)
	return assets, nil
}

func (f *fakeAssetRepo) GetByIDs(_ context.Context, _ *gorm.DB, assetIDs []uuid.UUID) ([]*types.Asset, error) {
	var out []*types.Asset
	for _, id := range assetIDs {
		for _, asset := range f.assets {
			if asset.ID != id || f.gone[id] {
				continue
			}
			copied := *asset
			if status, ok := f.recheckStatus[id]; ok {
				copied.Status = status
			}
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeAssetRepo) FindBySlotKeys(_ context.Context, _ *gorm.DB, mediaType string, statuses []string, q repos.SlotKeyQuery) ([]*types.Asset, error) {
	var out []*types.Asset
	for _, asset := range f.assets {
		if asset.MediaType != mediaType || !contains(statuses, asset.Status) {
			continue
		}
		raw := metadataMap(asset)
		matched := false
		for _, field := range []string{"imageType", "assetPurpose", "videoType"} {
			if v, ok := raw[field].(string); ok && contains(q.SlotKeys, v) {
				matched = true
			}
		}
		if v, ok := raw["section"].(string); ok && contains(q.Sections, v) {
			matched = true
		}
		if v, ok := raw["category"].(string); ok && contains(q.Categories, v) {
			matched = true
		}
		if matched {
			out = append(out, asset)
		}
	}
	return out, nil
}

func (f *fakeAssetRepo) FindUntypedImages(_ context.Context, _ *gorm.DB, statuses []string) ([]*types.Asset, error) {
	var out []*types.Asset
	for _, asset := range f.assets {
		if asset.MediaType != types.MediaTypeImage || !contains(statuses, asset.Status) {
			continue
		}
		raw := metadataMap(asset)
		if _, ok := raw["prompt"]; !ok {
			continue
		}
		typed := false
		for _, field := range []string{"imageType", "assetPurpose", "videoType", "section", "category"} {
			if _, ok := raw[field]; ok {
				typed = true
			}
		}
		if !typed {
			out = append(out, asset)
		}
	}
	return out, nil
}

type fakeTemplateDefaultRepo struct {
	classes map[string]string
}

func (f *fakeTemplateDefaultRepo) Upsert(_ context.Context, _ *gorm.DB, def *types.TemplateDefault) error {
	f.classes[def.TemplateType] = def.DisplayAssetClass
	return nil
}

func (f *fakeTemplateDefaultRepo) GetByTemplateType(_ context.Context, _ *gorm.DB, templateType string) (*types.TemplateDefault, error) {
	class, ok := f.classes[templateType]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return &types.TemplateDefault{TemplateType: templateType, DisplayAssetClass: class}, nil
}

func contains(list []string, v string) bool {
	for _, have := range list {
		if have == v {
			return true
		}
	}
	return false
}

func metadataMap(asset *types.Asset) map[string]interface{} {
	raw := map[string]interface{}{}
	_ = json.Unmarshal(asset.Metadata, &raw)
	return raw
}

func catalogAsset(t *testing.T, mediaType, status string, createdAt time.Time, metadata map[string]interface{}) *types.Asset {
	t.Helper()
	raw, err := json.Marshal(metadata)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	return &types.Asset{
		ID:        uuid.New(),
		MediaType: mediaType,
		Status:    status,
		FileURL:   "https://cdn.example.com/" + uuid.NewString(),
		Metadata:  datatypes.JSON(raw),
		CreatedAt: createdAt,
	}
}

func newTestService(t *testing.T, assets *fakeAssetRepo) Service {
	t.Helper()
	themes, err := normalization.NewThemeNormalizer()
	if err != nil {
		t.Fatalf("NewThemeNormalizer: %v", err)
	}
	defaults := &fakeTemplateDefaultRepo{classes: map[string]string{TemplateLullaby: "moon-and-stars"}}
	return NewService(assets, defaults, themes, NewRegistry(), logger.Nop())
}

func letterHuntRequest() TemplateRequest {
	return TemplateRequest{
		ChildName:    "Nolan",
		TargetLetter: "N",
		Theme:        "dogs",
		TemplateType: TemplateLetterHunt,
	}
}

func TestResolveSelectsThemeMatchedIntroVideo(t *testing.T) {
	now := time.Now()
	dog := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now.Add(-time.Hour), map[string]interface{}{
		"videoType": "introVideo", "theme": "Dog",
	})
	dino := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{
		"videoType": "introVideo", "theme": "Dinosaurs",
	})
	assets := &fakeAssetRepo{assets: []*types.Asset{dog, dino}}
	svc := newTestService(t, assets)

	res, err := svc.Resolve(context.Background(), letterHuntRequest())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	slot := res.Slots["introVideo"]
	if slot.Status != SlotStatusReady {
		t.Fatalf("introVideo status=%s, want ready", slot.Status)
	}
	if slot.AssetID == nil || *slot.AssetID != dog.ID {
		t.Fatalf("introVideo winner=%v, want the Dog asset (request theme dogs)", slot.AssetID)
	}
	if slot.SourceTier != TierTheme {
		t.Fatalf("SourceTier=%v, want TierTheme", slot.SourceTier)
	}
}

func TestResolveThemeMismatchListsAvailableThemes(t *testing.T) {
	now := time.Now()
	assets := &fakeAssetRepo{assets: []*types.Asset{
		catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{"videoType": "introVideo", "theme": "Dog"}),
		catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{"videoType": "introVideo", "theme": "Dinosaurs"}),
		catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{"videoType": "introVideo", "theme": "halloween"}),
	}}
	svc := newTestService(t, assets)

	req := letterHuntRequest()
	req.Theme = "cats"
	res, err := svc.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.Slots["introVideo"].Status != SlotStatusMissing {
		t.Fatalf("introVideo status=%s, want missing", res.Slots["introVideo"].Status)
	}
	var mismatch *types.Diagnostic
	for i := range res.Diagnostics {
		if res.Diagnostics[i].Code == types.DiagThemeMismatch && res.Diagnostics[i].SlotKey == "introVideo" {
			mismatch = &res.Diagnostics[i]
		}
	}
	if mismatch == nil {
		t.Fatalf("expected ThemeMismatch for introVideo, got %v", res.Diagnostics)
	}
	want := []string{"dinosaur", "dog", "halloween"}
	if !reflect.DeepEqual(mismatch.AvailableThemes, want) {
		t.Fatalf("AvailableThemes=%v, want %v", mismatch.AvailableThemes, want)
	}
}

func TestResolveThemeEquivalence(t *testing.T) {
	now := time.Now()
	dog := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{
		"videoType": "introVideo", "theme": "Dog",
	})
	assets := &fakeAssetRepo{assets: []*types.Asset{dog}}
	svc := newTestService(t, assets)

	for _, theme := range []string{"dog", "dogs", "Dogs", " DOGS "} {
		req := letterHuntRequest()
		req.Theme = theme
		res, err := svc.Resolve(context.Background(), req)
		if err != nil {
			t.Fatalf("Resolve(theme=%q): %v", theme, err)
		}
		slot := res.Slots["introVideo"]
		if slot.AssetID == nil || *slot.AssetID != dog.ID {
			t.Fatalf("theme %q should select the Dog asset", theme)
		}
	}
}

func TestResolvePriorityMonotonicity(t *testing.T) {
	now := time.Now()
	childSpecific := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now.Add(-72*time.Hour), map[string]interface{}{
		"videoType": "introVideo", "childName": "Nolan", "letter": "N",
	})
	themed := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{
		"videoType": "introVideo", "theme": "dogs",
	})
	// Two arrival orders, same winner.
	for _, ordered := range [][]*types.Asset{{childSpecific, themed}, {themed, childSpecific}} {
		svc := newTestService(t, &fakeAssetRepo{assets: ordered})
		res, err := svc.Resolve(context.Background(), letterHuntRequest())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		slot := res.Slots["introVideo"]
		if slot.AssetID == nil || *slot.AssetID != childSpecific.ID {
			t.Fatalf("child+letter candidate must win regardless of candidate order")
		}
		if slot.SourceTier != TierChildLetter {
			t.Fatalf("SourceTier=%v, want TierChildLetter", slot.SourceTier)
		}
	}
}

func TestResolveEndingVideoIgnoresTheme(t *testing.T) {
	now := time.Now()
	letterBound := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now.Add(-time.Hour), map[string]interface{}{
		"section": "endingVideo", "letter": "N",
	})
	themedNoLetter := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{
		"videoType": "endingVideo", "theme": "dogs",
	})
	svc := newTestService(t, &fakeAssetRepo{assets: []*types.Asset{letterBound, themedNoLetter}})

	res, err := svc.Resolve(context.Background(), letterHuntRequest())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	slot := res.Slots["endingVideo"]
	if slot.AssetID == nil || *slot.AssetID != letterBound.ID {
		t.Fatalf("ending slot must bind by letter only; themed candidate may not win")
	}
	if slot.SourceTier != TierLetter {
		t.Fatalf("SourceTier=%v, want TierLetter", slot.SourceTier)
	}
}

func TestResolveChildAudioWithoutLetterDimension(t *testing.T) {
	now := time.Now()
	avaIntro := catalogAsset(t, types.MediaTypeAudio, types.AssetStatusApproved, now.Add(-48*time.Hour), map[string]interface{}{
		"assetPurpose": "introAudio", "childName": "Ava",
	})
	otherChildIntro := catalogAsset(t, types.MediaTypeAudio, types.AssetStatusApproved, now, map[string]interface{}{
		"assetPurpose": "introAudio", "childName": "Nora",
	})
	genericIntro := catalogAsset(t, types.MediaTypeAudio, types.AssetStatusApproved, now, map[string]interface{}{
		"assetPurpose": "introAudio",
	})
	svc := newTestService(t, &fakeAssetRepo{assets: []*types.Asset{avaIntro, otherChildIntro, genericIntro}})

	res, err := svc.Resolve(context.Background(), TemplateRequest{
		ChildName:    "Ava",
		Theme:        "space",
		TemplateType: TemplateLullaby,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	slot := res.Slots["introAudio"]
	if slot.Status != SlotStatusReady {
		t.Fatalf("introAudio status=%s, want ready", slot.Status)
	}
	if slot.AssetID == nil || *slot.AssetID != avaIntro.ID {
		t.Fatalf("introAudio winner=%v, want Ava's own audio over the newer generic one", slot.AssetID)
	}
	if slot.SourceTier != TierChildLetter {
		t.Fatalf("SourceTier=%v, want the child tier", slot.SourceTier)
	}
}

func TestResolveNameVideoBlockedByMissingNameAudio(t *testing.T) {
	now := time.Now()
	catalog := []*types.Asset{
		catalogAsset(t, types.MediaTypeAudio, types.AssetStatusApproved, now, map[string]interface{}{"assetPurpose": "backgroundMusic"}),
		catalogAsset(t, types.MediaTypeImage, types.AssetStatusApproved, now, map[string]interface{}{"imageType": "letterImage", "theme": "halloween", "safeZone": "left"}),
		catalogAsset(t, types.MediaTypeImage, types.AssetStatusApproved, now, map[string]interface{}{"imageType": "letterImage", "theme": "halloween", "safeZone": "right"}),
	}
	svc := newTestService(t, &fakeAssetRepo{assets: catalog})

	res, err := svc.Resolve(context.Background(), TemplateRequest{
		ChildName:    "Al",
		Theme:        "halloween",
		TemplateType: TemplateNameVideo,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// 3 of 5 slots ready and full letter coverage, but nameAudio is required.
	if res.Readiness.CanGenerate {
		t.Fatalf("CanGenerate=true with required slot nameAudio missing (ready %d/%d)",
			res.Readiness.ReadyCount, res.Readiness.TotalSlots)
	}
	found := false
	for _, reason := range res.Readiness.BlockingReasons {
		if reason.Code == types.DiagMissingRequiredSlot && reason.SlotKey == "nameAudio" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MissingRequiredSlot for nameAudio, got %v", res.Readiness.BlockingReasons)
	}
}

func TestResolvePromptInferredLegacyImage(t *testing.T) {
	now := time.Now()
	legacySign := catalogAsset(t, types.MediaTypeImage, types.AssetStatusApproved, now, map[string]interface{}{
		"prompt": "A street sign with the letter N", "letter": "N",
	})
	unclassifiable := catalogAsset(t, types.MediaTypeImage, types.AssetStatusApproved, now, map[string]interface{}{
		"prompt": "abstract watercolor shapes",
	})
	svc := newTestService(t, &fakeAssetRepo{assets: []*types.Asset{legacySign, unclassifiable}})

	res, err := svc.Resolve(context.Background(), letterHuntRequest())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	slot := res.Slots["signImage"]
	if slot.Status != SlotStatusReady || slot.AssetID == nil || *slot.AssetID != legacySign.ID {
		t.Fatalf("prompt-inferred legacy sign image should fill signImage, got %+v", slot)
	}

	foundUnclassified := false
	for _, diag := range res.Diagnostics {
		if diag.Code == types.DiagUnclassifiedAsset && diag.AssetID != nil && *diag.AssetID == unclassifiable.ID {
			foundUnclassified = true
		}
	}
	if !foundUnclassified {
		t.Fatalf("unclassifiable asset must surface as UnclassifiedAsset, got %v", res.Diagnostics)
	}
}

func TestResolveIdempotentOverUnchangedCatalog(t *testing.T) {
	now := time.Now()
	assets := &fakeAssetRepo{assets: []*types.Asset{
		catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{"videoType": "introVideo", "theme": "dogs"}),
		catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{"videoType": "intro2Video", "theme": "dogs"}),
		catalogAsset(t, types.MediaTypeImage, types.AssetStatusApproved, now, map[string]interface{}{"imageType": "titleCard", "letter": "N"}),
		catalogAsset(t, types.MediaTypeAudio, types.AssetStatusPending, now, map[string]interface{}{"assetPurpose": "signAudio", "childName": "Nolan", "letter": "N"}),
	}}
	svc := newTestService(t, assets)

	first, err := svc.Resolve(context.Background(), letterHuntRequest())
	if err != nil {
		t.Fatalf("Resolve #1: %v", err)
	}
	second, err := svc.Resolve(context.Background(), letterHuntRequest())
	if err != nil {
		t.Fatalf("Resolve #2: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same request over unchanged catalog produced different resolutions")
	}
}

func TestResolveNameVideoLetterSlots(t *testing.T) {
	now := time.Now()
	var catalog []*types.Asset
	for i := 0; i < 3; i++ {
		catalog = append(catalog, catalogAsset(t, types.MediaTypeImage, types.AssetStatusApproved, now.Add(time.Duration(i)*time.Minute), map[string]interface{}{
			"imageType": "letterImage", "theme": "halloween", "safeZone": "left",
		}))
	}
	for i := 0; i < 2; i++ {
		catalog = append(catalog, catalogAsset(t, types.MediaTypeImage, types.AssetStatusApproved, now.Add(time.Duration(i)*time.Minute), map[string]interface{}{
			"imageType": "letterImage", "theme": "halloween", "safeZone": "right",
		}))
	}
	svc := newTestService(t, &fakeAssetRepo{assets: catalog})

	res, err := svc.Resolve(context.Background(), TemplateRequest{
		ChildName:    "NOLAN",
		Theme:        "halloween",
		TemplateType: TemplateNameVideo,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	filled := 0
	for i := 1; i <= 5; i++ {
		slot := res.Slots[sprintLetterSlot(i)]
		if slot.Status == SlotStatusReady {
			filled++
		}
	}
	if filled != 4 {
		t.Fatalf("filled letter positions=%d, want 4 (min(3,2)*2)", filled)
	}
	if res.Slots[sprintLetterSlot(5)].Status != SlotStatusMissing {
		t.Fatalf("letterImage5 should be missing")
	}

	coverageDiags := 0
	for _, diag := range res.Diagnostics {
		if diag.Code == types.DiagInsufficientLetterCoverage && diag.SlotKey == sprintLetterSlot(5) {
			coverageDiags++
			if diag.Available != 4 || diag.Required != 5 {
				t.Fatalf("coverage diag available=%d required=%d, want 4/5", diag.Available, diag.Required)
			}
		}
	}
	if coverageDiags != 1 {
		t.Fatalf("expected exactly one InsufficientLetterCoverage slot diag, got %d", coverageDiags)
	}
}

func TestResolveDemotesWinnerThatChangedMidRun(t *testing.T) {
	now := time.Now()
	intro := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{
		"videoType": "introVideo", "theme": "dogs",
	})
	vanished := catalogAsset(t, types.MediaTypeVideo, types.AssetStatusApproved, now, map[string]interface{}{
		"videoType": "intro2Video", "theme": "dogs",
	})
	assets := &fakeAssetRepo{
		assets:        []*types.Asset{intro, vanished},
		recheckStatus: map[uuid.UUID]string{intro.ID: types.AssetStatusPending},
		gone:          map[uuid.UUID]bool{vanished.ID: true},
	}
	svc := newTestService(t, assets)

	res, err := svc.Resolve(context.Background(), letterHuntRequest())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Slots["introVideo"].Status != SlotStatusGenerating {
		t.Fatalf("introVideo should demote to generating after mid-run status change, got %s", res.Slots["introVideo"].Status)
	}
	if res.Slots["intro2Video"].Status != SlotStatusMissing {
		t.Fatalf("intro2Video should demote to missing after mid-run disappearance, got %s", res.Slots["intro2Video"].Status)
	}
}

func TestResolveDisplayDefaultWhenNoTitleCard(t *testing.T) {
	svc := newTestService(t, &fakeAssetRepo{})
	res, err := svc.Resolve(context.Background(), TemplateRequest{
		ChildName:    "Ava",
		Theme:        "space",
		TemplateType: TemplateLullaby,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.DisplayAssetClass != "moon-and-stars" {
		t.Fatalf("DisplayAssetClass=%q, want template default moon-and-stars", res.DisplayAssetClass)
	}
}

func TestResolveFatalOnMalformedRequest(t *testing.T) {
	svc := newTestService(t, &fakeAssetRepo{})

	_, err := svc.Resolve(context.Background(), TemplateRequest{TemplateType: TemplateLullaby})
	if !errors.Is(err, pkgerrors.ErrInvalidRequest) {
		t.Fatalf("missing childName: err=%v, want ErrInvalidRequest", err)
	}

	_, err = svc.Resolve(context.Background(), TemplateRequest{ChildName: "Ava", TemplateType: "birthday-blast"})
	if !errors.Is(err, pkgerrors.ErrUnknownTemplate) {
		t.Fatalf("unknown template: err=%v, want ErrUnknownTemplate", err)
	}

	_, err = svc.Resolve(context.Background(), TemplateRequest{ChildName: "Ava", TemplateType: TemplateLetterHunt})
	if !errors.Is(err, pkgerrors.ErrInvalidRequest) {
		t.Fatalf("letter-hunt without letter: err=%v, want ErrInvalidRequest", err)
	}
}

func sprintLetterSlot(position int) string {
	return "letterImage" + string(rune('0'+position))
}
