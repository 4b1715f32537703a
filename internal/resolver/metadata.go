package resolver

import (
	"encoding/json"
	"strings"

	"github.com/lumokids/storytime-backend/internal/normalization"
	"github.com/lumokids/storytime-backend/internal/types"
)

// AssetMeta is the canonical tuple every catalog row is reduced to, exactly
// once, at this boundary. Empty string means absent for every field. SlotKey
// == "" means the row is unclassified and must not enter the candidate set.
type AssetMeta struct {
	Asset     *types.Asset
	SlotKey   string
	Letter    string
	ChildName string
	Theme     string
	SafeZone  string // letter images only: left|right
}

func (m AssetMeta) Unclassified() bool { return m.SlotKey == "" }

// explicitSlotFields is the current schema generation; exactly one of these is
// expected to be populated per row.
var explicitSlotFields = []string{"imageType", "assetPurpose", "videoType"}

// sectionSlots maps the legacy `section` field to slot keys. Exact match.
var sectionSlots = map[string]string{
	"introVideo":      "introVideo",
	"intro2Video":     "intro2Video",
	"happyDanceVideo": "happyDanceVideo",
	"dance":           "happyDanceVideo",
	"endingVideo":     "endingVideo",
}

// categorySlots maps the older `category` field to slot keys. Exact match.
var categorySlots = map[string]string{
	"letter AND theme": "introVideo",
	"letter-and-theme": "introVideo",
	"search":           "intro2Video",
	"intro2":           "intro2Video",
	"dance":            "happyDanceVideo",
}

// promptSlotKeywords drives free-text slot inference for the oldest image
// rows, which carry only a generation prompt. First hit wins.
var promptSlotKeywords = []struct {
	slotKey  string
	keywords []string
}{
	{slotKey: "signImage", keywords: []string{"street sign", "road sign", "sign"}},
	{slotKey: "bookImage", keywords: []string{"book", "cover", "reading"}},
	{slotKey: "groceryImage", keywords: []string{"grocery", "store", "cereal", "food"}},
	{slotKey: "endingImage", keywords: []string{"ending", "goodbye", "wave"}},
}

// NormalizeAssetMetadata turns one raw catalog row into its canonical tuple.
// Precedence for the slot key: explicit field, legacy section, legacy
// category, then prompt keyword inference (images only). Rows matching none
// come back unclassified, never silently dropped by callers.
func NormalizeAssetMetadata(asset *types.Asset) AssetMeta {
	meta := AssetMeta{Asset: asset}
	raw := map[string]interface{}{}
	if len(asset.Metadata) > 0 {
		// A malformed metadata document classifies the same as an empty one.
		_ = json.Unmarshal(asset.Metadata, &raw)
	}

	for _, field := range explicitSlotFields {
		if v := metaString(raw, field); v != "" {
			meta.SlotKey = v
			break
		}
	}
	if meta.SlotKey == "" {
		if section := metaString(raw, "section"); section != "" {
			meta.SlotKey = sectionSlots[section]
		}
	}
	if meta.SlotKey == "" {
		if category := metaString(raw, "category"); category != "" {
			meta.SlotKey = categorySlots[category]
		}
	}
	if meta.SlotKey == "" && asset.MediaType == types.MediaTypeImage {
		meta.SlotKey = inferSlotFromPrompt(metaString(raw, "prompt"))
	}

	meta.Letter = strings.ToUpper(firstMetaString(raw, "letter", "targetLetter", "target_letter"))
	meta.ChildName = firstMetaString(raw, "childName", "child_name")
	meta.Theme = firstMetaString(raw, "theme", "child_theme")
	meta.SafeZone = normalization.Fold(firstMetaString(raw, "safeZone", "safe_zone"))
	return meta
}

func inferSlotFromPrompt(prompt string) string {
	if prompt == "" {
		return ""
	}
	folded := normalization.Fold(prompt)
	for _, rule := range promptSlotKeywords {
		for _, keyword := range rule.keywords {
			if strings.Contains(folded, keyword) {
				return rule.slotKey
			}
		}
	}
	return ""
}

// metaString reads one key as a trimmed string; empty string and non-string
// values both read as absent rather than as "the empty-string child".
func metaString(raw map[string]interface{}, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstMetaString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v := metaString(raw, key); v != "" {
			return v
		}
	}
	return ""
}
