package types

import "time"

// TemplateDefault is the per-template fallback display-asset class used when a
// resolution produces no thumbnail-class slot.
type TemplateDefault struct {
	TemplateType      string    `gorm:"column:template_type;primaryKey" json:"template_type"`
	DisplayAssetClass string    `gorm:"column:display_asset_class;not null" json:"display_asset_class"`
	CreatedAt         time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TemplateDefault) TableName() string { return "template_default" }
