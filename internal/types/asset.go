package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeAudio = "audio"
)

const (
	AssetStatusPending  = "pending"
	AssetStatusApproved = "approved"
	AssetStatusRejected = "rejected"
)

// Asset is one row of the shared media catalog. The metadata column is an open
// key-value map whose shape varies by schema generation: current rows carry an
// explicit imageType/assetPurpose/videoType, older rows carry section/category,
// and the oldest image rows carry only a free-text prompt. Normalizing that
// mess happens once, at the catalog boundary (internal/resolver).
type Asset struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MediaType string         `gorm:"column:media_type;not null;index" json:"media_type"` // image|video|audio
	Status    string         `gorm:"column:status;not null;index" json:"status"`         // pending|approved|rejected
	FileURL   string         `gorm:"column:file_url" json:"file_url,omitempty"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Asset) TableName() string { return "asset" }
