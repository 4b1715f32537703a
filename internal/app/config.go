package app

import (
	"strings"

	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/utils"
)

type Config struct {
	Env            string
	Port           string
	AllowedOrigins []string
	// ThemeTablePath overrides the embedded theme alias table when set.
	ThemeTablePath string
}

func LoadConfig(log *logger.Logger) Config {
	env := utils.GetEnv("APP_ENV", "development", log)
	port := utils.GetEnv("PORT", "8080", log)
	origins := utils.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000", log)
	themeTablePath := utils.GetEnv("THEME_TABLE_PATH", "", log)
	return Config{
		Env:            env,
		Port:           port,
		AllowedOrigins: strings.Split(origins, ","),
		ThemeTablePath: themeTablePath,
	}
}
