package models

import "time"

// Vehicle is the fleet registry. A registered vehicle with no collection
// records is the "empty history" data-quality case the gap report must
// surface.
type Vehicle struct {
	Id        int    `gorm:"primaryKey" json:"id"`
	VehicleId string `gorm:"size:64;uniqueIndex" json:"vehicle_id" validate:"required"`
	Remark    string `gorm:"size:255" json:"remark"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
