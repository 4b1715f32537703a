package resolver

import (
	"fmt"
	"strings"

	pkgerrors "github.com/lumokids/storytime-backend/internal/pkg/errors"
)

// TemplateRequest asks for one personalized-video instantiation. ChildName and
// TemplateType are always mandatory; TargetLetter and Theme are mandatory only
// when some slot of the template's schema matches on them.
type TemplateRequest struct {
	ChildName    string `json:"child_name"`
	TargetLetter string `json:"target_letter,omitempty"`
	Theme        string `json:"theme,omitempty"`
	TemplateType string `json:"template_type"`
}

// Validate is the only fatal gate in a resolution run; everything downstream
// degrades to diagnostics instead of failing.
func (req TemplateRequest) Validate(schema TemplateSchema) error {
	if strings.TrimSpace(req.ChildName) == "" {
		return fmt.Errorf("%w: childName is required", pkgerrors.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.TemplateType) == "" {
		return fmt.Errorf("%w: templateType is required", pkgerrors.ErrInvalidRequest)
	}
	if schema.RequiresLetter() && !schema.LetterSlots && strings.TrimSpace(req.TargetLetter) == "" {
		return fmt.Errorf("%w: template %q requires a target letter", pkgerrors.ErrInvalidRequest, schema.Type)
	}
	if schema.RequiresTheme() && strings.TrimSpace(req.Theme) == "" {
		return fmt.Errorf("%w: template %q requires a theme", pkgerrors.ErrInvalidRequest, schema.Type)
	}
	return nil
}
