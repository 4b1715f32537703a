package normalization

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed themes.yaml
var defaultThemeTable []byte

// Fold lowercases and trims raw user/catalog input. Every string comparison in
// the resolvers goes through this first.
func Fold(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

type themeTable struct {
	Themes map[string][]string `yaml:"themes"`
}

// ThemeNormalizer collapses synonymous and pluralized theme spellings onto one
// canonical comparison key. The table is data; vocabulary grows by editing
// themes.yaml (or pointing THEME_TABLE_PATH at an override), never by code.
type ThemeNormalizer struct {
	aliases map[string]string
}

// NewThemeNormalizer builds a normalizer from the embedded default table.
func NewThemeNormalizer() (*ThemeNormalizer, error) {
	return newThemeNormalizer(defaultThemeTable)
}

// NewThemeNormalizerFromFile builds a normalizer from an override table on disk.
func NewThemeNormalizerFromFile(path string) (*ThemeNormalizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme table %s: %w", path, err)
	}
	return newThemeNormalizer(data)
}

func newThemeNormalizer(data []byte) (*ThemeNormalizer, error) {
	var table themeTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse theme table: %w", err)
	}
	aliases := make(map[string]string)
	for canonical, raws := range table.Themes {
		canonical = Fold(canonical)
		aliases[canonical] = canonical
		for _, raw := range raws {
			aliases[Fold(raw)] = canonical
		}
	}
	return &ThemeNormalizer{aliases: aliases}, nil
}

// Normalize canonicalizes a theme string. Unmatched input passes through
// folded, with a single trailing-s plural fold so unlisted plurals still
// collapse. Normalize(Normalize(x)) == Normalize(x) for all x.
func (n *ThemeNormalizer) Normalize(raw string) string {
	theme := Fold(raw)
	if theme == "" {
		return ""
	}
	if canonical, ok := n.aliases[theme]; ok {
		return canonical
	}
	if strings.HasSuffix(theme, "s") && !strings.HasSuffix(theme, "ss") {
		singular := strings.TrimSuffix(theme, "s")
		if canonical, ok := n.aliases[singular]; ok {
			return canonical
		}
		return singular
	}
	return theme
}

// Equal is the sole legal theme-equality test in the module.
func (n *ThemeNormalizer) Equal(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

// CanonicalSet normalizes, dedupes and sorts a list of raw themes. Used for
// the available-themes listing on ThemeMismatch diagnostics.
func (n *ThemeNormalizer) CanonicalSet(raws []string) []string {
	seen := make(map[string]bool, len(raws))
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		canonical := n.Normalize(raw)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out
}
