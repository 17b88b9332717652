package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is read-only from the API.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProfileID uuid.UUID `gorm:"column:profiles_id;type:uuid;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	Profile   *Profile  `gorm:"foreignKey:ProfileID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
