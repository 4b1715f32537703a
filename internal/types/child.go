package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Child is the profile a personalized video is rendered for. PrimaryInterest
// is the raw theme string the parent picked; it is never compared directly,
// only through theme normalization.
type Child struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null;index" json:"name"`
	PrimaryInterest string         `gorm:"column:primary_interest" json:"primary_interest,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Child) TableName() string { return "child" }
