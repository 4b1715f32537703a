package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/lumokids/storytime-backend/internal/normalization"
	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/repos"
	"github.com/lumokids/storytime-backend/internal/types"
)

// Resolution is the complete answer for one template request: exactly one
// resolved slot per declared slot, the diagnostics gathered along the way,
// and the readiness verdict. Built fresh on every call, never cached.
type Resolution struct {
	TemplateType      string                  `json:"template_type"`
	Request           TemplateRequest         `json:"request"`
	SlotOrder         []string                `json:"slot_order"`
	Slots             map[string]ResolvedSlot `json:"slots"`
	Diagnostics       []types.Diagnostic      `json:"diagnostics,omitempty"`
	Readiness         Readiness               `json:"readiness"`
	DisplayAssetClass string                  `json:"display_asset_class,omitempty"`
}

type Service interface {
	Resolve(ctx context.Context, req TemplateRequest) (*Resolution, error)
}

type service struct {
	assets           repos.AssetRepo
	templateDefaults repos.TemplateDefaultRepo
	themes           *normalization.ThemeNormalizer
	registry         *Registry
	log              *logger.Logger
}

func NewService(assets repos.AssetRepo, templateDefaults repos.TemplateDefaultRepo, themes *normalization.ThemeNormalizer, registry *Registry, baseLog *logger.Logger) Service {
	serviceLog := baseLog.With("service", "ResolverService")
	return &service{
		assets:           assets,
		templateDefaults: templateDefaults,
		themes:           themes,
		registry:         registry,
		log:              serviceLog,
	}
}

func (s *service) Resolve(ctx context.Context, req TemplateRequest) (*Resolution, error) {
	schema, err := s.registry.Lookup(req.TemplateType)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(schema); err != nil {
		return nil, err
	}

	res := &Resolution{
		TemplateType: schema.Type,
		Request:      req,
		Slots:        make(map[string]ResolvedSlot),
	}

	run := &resolutionRun{
		service:     s,
		ctx:         ctx,
		req:         req,
		res:         res,
		reportedIDs: make(map[uuid.UUID]bool),
	}

	for _, plan := range BuildPlan(schema, req) {
		if err := run.resolveSlot(plan); err != nil {
			return nil, err
		}
	}

	var coverage *LetterCoverage
	if schema.LetterSlots {
		coverage, err = run.resolveLetterSlots()
		if err != nil {
			return nil, err
		}
	}

	if err := run.recheckWinners(); err != nil {
		return nil, err
	}

	res.Readiness = EvaluateReadiness(schema, res.SlotOrder, res.Slots, coverage)
	res.Diagnostics = append(res.Diagnostics, res.Readiness.BlockingReasons...)

	s.applyDisplayDefault(ctx, schema, res)

	s.log.Debug("resolution complete",
		"template_type", schema.Type,
		"child_name", req.ChildName,
		"ready", res.Readiness.ReadyCount,
		"total", res.Readiness.TotalSlots,
		"can_generate", res.Readiness.CanGenerate,
	)
	return res, nil
}

// resolutionRun carries the per-call state: one snapshot of query results, a
// shared untyped-row fetch, and asset-level diagnostic dedup.
type resolutionRun struct {
	service     *service
	ctx         context.Context
	req         TemplateRequest
	res         *Resolution
	untyped     []AssetMeta
	untypedDone bool
	reportedIDs map[uuid.UUID]bool
}

func (run *resolutionRun) resolveSlot(plan SlotPlan) error {
	rows, err := run.service.assets.FindBySlotKeys(run.ctx, nil, plan.Slot.MediaType, candidateStatuses, plan.Query)
	if err != nil {
		return fmt.Errorf("query candidates for slot %s: %w", plan.Slot.SlotKey, err)
	}
	metas := normalizeRows(rows)
	if plan.IncludeUntyped {
		untyped, err := run.untypedMetas()
		if err != nil {
			return err
		}
		metas = append(metas, untyped...)
	}

	var candidates []Candidate
	var offThemeRaw []string
	seen := make(map[uuid.UUID]bool)
	for _, meta := range metas {
		if seen[meta.Asset.ID] {
			continue
		}
		seen[meta.Asset.ID] = true
		if meta.Unclassified() {
			run.reportUnclassified(meta)
			continue
		}
		if meta.SlotKey != plan.Slot.SlotKey {
			continue
		}
		tier, ok := CandidateTier(plan, run.req, meta, run.service.themes)
		if !ok {
			// Theme-shaped rows that failed only the theme test feed the
			// ThemeMismatch available-themes listing.
			if meta.ChildName == "" && meta.Letter == "" && meta.Theme != "" {
				offThemeRaw = append(offThemeRaw, meta.Theme)
			}
			continue
		}
		candidates = append(candidates, Candidate{
			Meta:       meta,
			Tier:       tier,
			ThemeMatch: meta.Theme != "" && run.req.Theme != "" && run.service.themes.Equal(meta.Theme, run.req.Theme),
		})
	}

	resolved := Combine(plan.Slot, candidates)
	run.res.SlotOrder = append(run.res.SlotOrder, plan.Slot.SlotKey)
	run.res.Slots[plan.Slot.SlotKey] = resolved

	if resolved.Status == SlotStatusMissing {
		if plan.Slot.HasDimension(DimTheme) && run.req.Theme != "" && len(offThemeRaw) > 0 {
			run.res.Diagnostics = append(run.res.Diagnostics, types.Diagnostic{
				Code:            types.DiagThemeMismatch,
				SlotKey:         plan.Slot.SlotKey,
				AvailableThemes: run.service.themes.CanonicalSet(offThemeRaw),
				Message:         "candidates exist but none match the requested theme",
			})
		}
		if plan.Slot.Required {
			run.res.Diagnostics = append(run.res.Diagnostics, types.Diagnostic{
				Code:    types.DiagMissingRequiredSlot,
				SlotKey: plan.Slot.SlotKey,
				Message: "required slot has no eligible asset",
			})
		}
	}
	return nil
}

// untypedMetas fetches the prompt-only legacy image rows once per run; every
// prompt-inferred slot shares the same sweep.
func (run *resolutionRun) untypedMetas() ([]AssetMeta, error) {
	if run.untypedDone {
		return run.untyped, nil
	}
	rows, err := run.service.assets.FindUntypedImages(run.ctx, nil, candidateStatuses)
	if err != nil {
		return nil, fmt.Errorf("query untyped legacy images: %w", err)
	}
	run.untyped = normalizeRows(rows)
	run.untypedDone = true
	return run.untyped, nil
}

func (run *resolutionRun) reportUnclassified(meta AssetMeta) {
	if run.reportedIDs[meta.Asset.ID] {
		return
	}
	run.reportedIDs[meta.Asset.ID] = true
	id := meta.Asset.ID
	run.res.Diagnostics = append(run.res.Diagnostics, types.Diagnostic{
		Code:    types.DiagUnclassifiedAsset,
		AssetID: &id,
		Message: "asset matched no slot inference rule; excluded from candidates",
	})
	run.service.log.Debug("unclassified asset excluded", "asset_id", id)
}

// resolveLetterSlots expands the per-letter positions of a name video and
// fills them from the theme-matched safe-zone letter image pools.
func (run *resolutionRun) resolveLetterSlots() (*LetterCoverage, error) {
	rows, err := run.service.assets.FindBySlotKeys(run.ctx, nil, types.MediaTypeImage, candidateStatuses, repos.SlotKeyQuery{SlotKeys: []string{"letterImage"}})
	if err != nil {
		return nil, fmt.Errorf("query letter images: %w", err)
	}

	var left, right []AssetMeta
	for _, meta := range normalizeRows(rows) {
		if meta.Asset.Status != types.AssetStatusApproved {
			continue
		}
		if meta.Theme == "" || !run.service.themes.Equal(meta.Theme, run.req.Theme) {
			continue
		}
		switch meta.SafeZone {
		case SafeZoneLeft:
			left = append(left, meta)
		case SafeZoneRight:
			right = append(right, meta)
		}
	}

	coverage := ComputeLetterCoverage(run.req.ChildName, len(left), len(right))
	for _, pos := range coverage.Positions {
		slotKey := fmt.Sprintf("letterImage%d", pos.Index+1)
		run.res.SlotOrder = append(run.res.SlotOrder, slotKey)

		if pos.Index >= coverage.Filled {
			run.res.Slots[slotKey] = ResolvedSlot{SlotKey: slotKey, Status: SlotStatusMissing}
			run.res.Diagnostics = append(run.res.Diagnostics, types.Diagnostic{
				Code:      types.DiagInsufficientLetterCoverage,
				SlotKey:   slotKey,
				Available: coverage.Pairs,
				Required:  len(coverage.Positions),
				Message:   "no alternating letter-image pair left for this position",
			})
			continue
		}

		pool := left
		if pos.SafeZone == SafeZoneRight {
			pool = right
		}
		meta := pool[pos.Index/2]
		id := meta.Asset.ID
		run.res.Slots[slotKey] = ResolvedSlot{
			SlotKey:      slotKey,
			AssetID:      &id,
			URL:          meta.Asset.FileURL,
			Status:       SlotStatusReady,
			SourceTier:   TierTheme,
			MatchedTheme: meta.Theme,
		}
	}
	return &coverage, nil
}

// recheckWinners re-reads every winning asset once at the end of the run.
// Rows that vanished or regressed between the per-slot queries and now are
// demoted to generating/missing rather than erroring the whole call.
func (run *resolutionRun) recheckWinners() error {
	var ids []uuid.UUID
	for _, slotKey := range run.res.SlotOrder {
		slot := run.res.Slots[slotKey]
		if slot.AssetID != nil {
			ids = append(ids, *slot.AssetID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := run.service.assets.GetByIDs(run.ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("recheck winning assets: %w", err)
	}
	current := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		current[row.ID] = row.Status
	}

	for _, slotKey := range run.res.SlotOrder {
		slot := run.res.Slots[slotKey]
		if slot.AssetID == nil {
			continue
		}
		status, exists := current[*slot.AssetID]
		switch {
		case !exists, status == types.AssetStatusRejected:
			run.service.log.Debug("winning asset disappeared mid-run, demoting slot", "slot_key", slotKey, "asset_id", *slot.AssetID)
			run.res.Slots[slotKey] = ResolvedSlot{SlotKey: slotKey, Status: SlotStatusMissing}
		case status == types.AssetStatusPending && slot.Status == SlotStatusReady:
			slot.Status = SlotStatusGenerating
			run.res.Slots[slotKey] = slot
		}
	}
	return nil
}

func (s *service) applyDisplayDefault(ctx context.Context, schema TemplateSchema, res *Resolution) {
	if s.templateDefaults == nil {
		return
	}
	if thumb, ok := res.Slots["titleCard"]; ok && thumb.Status == SlotStatusReady {
		return
	}
	def, err := s.templateDefaults.GetByTemplateType(ctx, nil, schema.Type)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) {
			s.log.Warn("template default lookup failed", "template_type", schema.Type, "error", err)
		}
		return
	}
	res.DisplayAssetClass = def.DisplayAssetClass
}

// normalizeRows canonicalizes a result set and fixes its order so resolution
// output never depends on storage iteration order.
func normalizeRows(rows []*types.Asset) []AssetMeta {
	sorted := make([]*types.Asset, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() > sorted[j].ID.String()
	})
	metas := make([]AssetMeta, 0, len(sorted))
	for _, row := range sorted {
		metas = append(metas, NormalizeAssetMetadata(row))
	}
	return metas
}
