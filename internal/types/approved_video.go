package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

const (
	PersonalizationGeneric = "generic"
	PersonalizationTheme   = "theme"
	PersonalizationChild   = "child"
)

// ApprovedVideo is the moderation record for a rendered video. ID doubles as
// the video id referenced by VideoAssignment.VideoID. An approved row with no
// matching assignment is an orphaned approval; reconciliation reports it and
// never fabricates an assignment.
type ApprovedVideo struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ApprovalStatus       string         `gorm:"column:approval_status;not null;index" json:"approval_status"` // pending|approved|rejected
	IsPublished          bool           `gorm:"column:is_published;not null;default:false" json:"is_published"`
	PersonalizationLevel string         `gorm:"column:personalization_level" json:"personalization_level,omitempty"` // generic|theme|child
	ChildTheme           string         `gorm:"column:child_theme" json:"child_theme,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ApprovedVideo) TableName() string { return "approved_video" }
