package app

import (
	"fmt"

	"github.com/lumokids/storytime-backend/internal/normalization"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/resolver"
	"github.com/lumokids/storytime-backend/internal/visibility"
)

type Services struct {
	Themes     *normalization.ThemeNormalizer
	Registry   *resolver.Registry
	Resolver   resolver.Service
	Visibility visibility.Service
}

func wireServices(cfg Config, repositories Repos, log *logger.Logger) (Services, error) {
	log.Info("Wiring services...")

	var themes *normalization.ThemeNormalizer
	var err error
	if cfg.ThemeTablePath != "" {
		themes, err = normalization.NewThemeNormalizerFromFile(cfg.ThemeTablePath)
	} else {
		themes, err = normalization.NewThemeNormalizer()
	}
	if err != nil {
		return Services{}, fmt.Errorf("build theme normalizer: %w", err)
	}

	registry := resolver.NewRegistry()
	return Services{
		Themes:   themes,
		Registry: registry,
		Resolver: resolver.NewService(
			repositories.Asset,
			repositories.TemplateDefault,
			themes,
			registry,
			log,
		),
		Visibility: visibility.NewService(
			repositories.Child,
			repositories.VideoAssignment,
			repositories.ApprovedVideo,
			themes,
			log,
		),
	}, nil
}
