package reviews

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ReviewDTO is a product review with the reviewer's display name.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	Reviewer  string    `json:"reviewer"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewList is one page of reviews plus the page's average rating.
type ReviewList struct {
	Reviews       []ReviewDTO `json:"reviews"`
	AverageRating float64     `json:"average_rating"`
	NextCursor    string      `json:"next_cursor,omitempty"`
}

// Service is read-only; reviews are written elsewhere.
type Service interface {
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}

	list := &ReviewList{Reviews: make([]ReviewDTO, 0, len(rows))}
	sum := 0
	for _, row := range rows {
		dto := ReviewDTO{
			ID:        row.ID,
			ProductID: row.ProductID,
			Rating:    row.Rating,
			Comment:   row.Comment,
			Reviewer:  "Anonymous",
			CreatedAt: row.CreatedAt,
		}
		if row.Profile != nil {
			switch {
			case row.Profile.FullName != nil && *row.Profile.FullName != "":
				dto.Reviewer = *row.Profile.FullName
			case row.Profile.Username != nil && *row.Profile.Username != "":
				dto.Reviewer = *row.Profile.Username
			}
			dto.AvatarURL = row.Profile.AvatarURL
		}
		sum += row.Rating
		list.Reviews = append(list.Reviews, dto)
	}
	if len(rows) > 0 {
		list.AverageRating = float64(sum) / float64(len(rows))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}
