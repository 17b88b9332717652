package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the shopper details checkout reads. Address is empty until
// the shopper sets one.
type Profile struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Username  *string   `gorm:"column:username"`
	FullName  *string   `gorm:"column:full_name"`
	AvatarURL *string   `gorm:"column:avatar_url"`
	Address   string    `gorm:"column:address;not null;default:''"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
