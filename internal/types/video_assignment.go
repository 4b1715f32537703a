package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AssignmentTypeGeneral    = "general"
	AssignmentTypeIndividual = "individual"
	AssignmentTypeTheme      = "theme"
)

const (
	AssignmentStatusDraft     = "draft"
	AssignmentStatusPublished = "published"
	AssignmentStatusArchived  = "archived"
)

// VideoAssignment controls which children a published video is visible to.
// ChildID is null iff the assignment is general; Theme is used iff the
// assignment is theme-typed. Status only ever moves draft -> published ->
// archived; archiving is terminal.
type VideoAssignment struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VideoID        uuid.UUID      `gorm:"type:uuid;column:video_id;not null;index" json:"video_id"`
	AssignmentType string         `gorm:"column:assignment_type;not null;index" json:"assignment_type"` // general|individual|theme
	ChildID        *uuid.UUID     `gorm:"type:uuid;column:child_id;index" json:"child_id,omitempty"`
	Theme          *string        `gorm:"column:theme" json:"theme,omitempty"`
	Status         string         `gorm:"column:status;not null;index" json:"status"` // draft|published|archived
	IsActive       bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	PublishDate    *time.Time     `gorm:"column:publish_date" json:"publish_date,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VideoAssignment) TableName() string { return "video_assignment" }
