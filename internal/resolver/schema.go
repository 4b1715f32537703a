package resolver

import (
	"fmt"

	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
	"github.com/lumokids/storytime-backend/internal/types"
)

const (
	TemplateLetterHunt = "letter-hunt"
	TemplateLullaby    = "lullaby"
	TemplateNameVideo  = "name-video"
)

type MatchDimension string

const (
	DimChild  MatchDimension = "child"
	DimLetter MatchDimension = "letter"
	DimTheme  MatchDimension = "theme"
)

// SlotDefinition declares one abstract render slot of a template. LetterOnly
// marks ending-type video slots that are letter-bound by template contract:
// they match on the letter tier alone and ignore theme entirely.
type SlotDefinition struct {
	SlotKey    string
	MediaType  string
	Required   bool
	Dimensions []MatchDimension
	LetterOnly bool
}

func (d SlotDefinition) HasDimension(dim MatchDimension) bool {
	for _, have := range d.Dimensions {
		if have == dim {
			return true
		}
	}
	return false
}

// GatingContract declares what a template needs before generation may start.
type GatingContract struct {
	// GatingSlots must all be ready, independent of the completion fraction.
	GatingSlots []string
	// MinCompletion is the minimum ready-slot fraction, 0..1.
	MinCompletion float64
	// RequireLetterCoverage gates on alternating letter-image pair coverage
	// derived from the child's name (name-video).
	RequireLetterCoverage bool
}

// TemplateSchema is the full static declaration of a template type.
// LetterSlots templates expand one additional image slot per letter of the
// child's name at resolution time.
type TemplateSchema struct {
	Type        string
	Slots       []SlotDefinition
	Gating      GatingContract
	LetterSlots bool
}

func (s TemplateSchema) RequiresLetter() bool {
	for _, slot := range s.Slots {
		if slot.LetterOnly || slot.HasDimension(DimLetter) {
			return true
		}
	}
	return false
}

func (s TemplateSchema) RequiresTheme() bool {
	if s.LetterSlots {
		return true
	}
	for _, slot := range s.Slots {
		if slot.HasDimension(DimTheme) {
			return true
		}
	}
	return false
}

// Registry holds the slot schemas, versioned with the template vocabulary.
type Registry struct {
	templates map[string]TemplateSchema
	order     []string
}

func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]TemplateSchema)}
	r.register(letterHuntSchema())
	r.register(lullabySchema())
	r.register(nameVideoSchema())
	return r
}

func (r *Registry) register(schema TemplateSchema) {
	r.templates[schema.Type] = schema
	r.order = append(r.order, schema.Type)
}

func (r *Registry) Lookup(templateType string) (TemplateSchema, error) {
	schema, ok := r.templates[templateType]
	if !ok {
		return TemplateSchema{}, fmt.Errorf("%w: %q", pkgerrors.ErrUnknownTemplate, templateType)
	}
	return schema, nil
}

func (r *Registry) TemplateTypes() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func letterHuntSchema() TemplateSchema {
	return TemplateSchema{
		Type: TemplateLetterHunt,
		Slots: []SlotDefinition{
			{SlotKey: "titleCard", MediaType: types.MediaTypeImage, Required: true, Dimensions: []MatchDimension{DimLetter, DimTheme}},
			{SlotKey: "titleAudio", MediaType: types.MediaTypeAudio, Required: false, Dimensions: []MatchDimension{DimLetter}},
			{SlotKey: "introVideo", MediaType: types.MediaTypeVideo, Required: true, Dimensions: []MatchDimension{DimChild, DimLetter, DimTheme}},
			{SlotKey: "intro2Video", MediaType: types.MediaTypeVideo, Required: true, Dimensions: []MatchDimension{DimLetter, DimTheme}},
			{SlotKey: "signImage", MediaType: types.MediaTypeImage, Required: true, Dimensions: []MatchDimension{DimLetter, DimTheme}},
			{SlotKey: "signAudio", MediaType: types.MediaTypeAudio, Required: true, Dimensions: []MatchDimension{DimChild, DimLetter}},
			{SlotKey: "bookImage", MediaType: types.MediaTypeImage, Required: false, Dimensions: []MatchDimension{DimTheme}},
			{SlotKey: "groceryImage", MediaType: types.MediaTypeImage, Required: false, Dimensions: []MatchDimension{DimTheme}},
			{SlotKey: "happyDanceVideo", MediaType: types.MediaTypeVideo, Required: false, Dimensions: []MatchDimension{DimTheme}},
			{SlotKey: "endingVideo", MediaType: types.MediaTypeVideo, Required: true, Dimensions: []MatchDimension{DimLetter}, LetterOnly: true},
			{SlotKey: "endingImage", MediaType: types.MediaTypeImage, Required: false, Dimensions: []MatchDimension{DimTheme}},
		},
		Gating: GatingContract{
			GatingSlots:   []string{"titleCard", "introVideo", "intro2Video", "signImage", "signAudio", "endingVideo"},
			MinCompletion: 0.50,
		},
	}
}

func lullabySchema() TemplateSchema {
	return TemplateSchema{
		Type: TemplateLullaby,
		Slots: []SlotDefinition{
			{SlotKey: "backgroundMusic", MediaType: types.MediaTypeAudio, Required: true},
			{SlotKey: "introAudio", MediaType: types.MediaTypeAudio, Required: true, Dimensions: []MatchDimension{DimChild}},
			{SlotKey: "outroAudio", MediaType: types.MediaTypeAudio, Required: false, Dimensions: []MatchDimension{DimChild}},
			{SlotKey: "introVideo", MediaType: types.MediaTypeVideo, Required: false, Dimensions: []MatchDimension{DimTheme}},
			{SlotKey: "bedtimeImage", MediaType: types.MediaTypeImage, Required: false, Dimensions: []MatchDimension{DimTheme}},
		},
		Gating: GatingContract{
			GatingSlots:   []string{"backgroundMusic", "introAudio"},
			MinCompletion: 0.60,
		},
	}
}

func nameVideoSchema() TemplateSchema {
	return TemplateSchema{
		Type: TemplateNameVideo,
		Slots: []SlotDefinition{
			{SlotKey: "titleCard", MediaType: types.MediaTypeImage, Required: false, Dimensions: []MatchDimension{DimTheme}},
			{SlotKey: "backgroundMusic", MediaType: types.MediaTypeAudio, Required: true},
			{SlotKey: "nameAudio", MediaType: types.MediaTypeAudio, Required: true, Dimensions: []MatchDimension{DimChild}},
		},
		Gating: GatingContract{
			MinCompletion:         0.50,
			RequireLetterCoverage: true,
		},
		LetterSlots: true,
	}
}
