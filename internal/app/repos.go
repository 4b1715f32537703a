package app

import (
	"gorm.io/gorm"

	"github.com/lumokids/storytime-backend/internal/pkg/logger"
	"github.com/lumokids/storytime-backend/internal/repos"
)

type Repos struct {
	Asset           repos.AssetRepo
	Child           repos.ChildRepo
	VideoAssignment repos.VideoAssignmentRepo
	ApprovedVideo   repos.ApprovedVideoRepo
	TemplateDefault repos.TemplateDefaultRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Asset:           repos.NewAssetRepo(db, log),
		Child:           repos.NewChildRepo(db, log),
		VideoAssignment: repos.NewVideoAssignmentRepo(db, log),
		ApprovedVideo:   repos.NewApprovedVideoRepo(db, log),
		TemplateDefault: repos.NewTemplateDefaultRepo(db, log),
	}
}
