package profiles

import (
	"time"

	"github.com/angelmondragon/teahouse-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ProfileDTO is the shopper profile as returned by the API.
type ProfileDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  *string   `json:"username,omitempty"`
	FullName  *string   `json:"full_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateAddressRequest is the body of PUT /profile/address.
type UpdateAddressRequest struct {
	Address string `json:"address" validate:"required,max=500"`
}

func FromModel(m *models.Profile) ProfileDTO {
	return ProfileDTO{
		ID:        m.ID,
		Username:  m.Username,
		FullName:  m.FullName,
		AvatarURL: m.AvatarURL,
		Address:   m.Address,
		UpdatedAt: m.UpdatedAt,
	}
}
