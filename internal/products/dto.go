package product

import (
	"time"

	"github.com/angelmondragon/teahouse-backend/pkg/db/models"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the catalog listing returned by the API.
type ProductDTO struct {
	ID           uuid.UUID             `json:"id"`
	ProductName  string                `json:"product_name"`
	Description  *string               `json:"description,omitempty"`
	Price        decimal.Decimal       `json:"price"`
	Company      *string               `json:"company,omitempty"`
	Category     enums.ProductCategory `json:"category"`
	Quantity     int                   `json:"quantity"`
	Status       bool                  `json:"status"`
	ProductImage *string               `json:"product_image,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:           product.ID,
		ProductName:  product.ProductName,
		Description:  product.Description,
		Price:        product.Price,
		Company:      product.Company,
		Category:     product.Category,
		Quantity:     product.Quantity,
		Status:       product.Status,
		ProductImage: product.ProductImage,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
}
