package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/teahouse-backend/pkg/db/models"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/money"
	"github.com/angelmondragon/teahouse-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	SetStatus(ctx context.Context, productID uuid.UUID, active bool) (*ProductDTO, error)
}

// CreateProductInput captures the admin create form.
type CreateProductInput struct {
	ProductName  string                `json:"product_name" validate:"required,max=200"`
	Description  *string               `json:"description,omitempty"`
	Price        decimal.Decimal       `json:"price" validate:"required"`
	Company      *string               `json:"company,omitempty"`
	Category     enums.ProductCategory `json:"category" validate:"required"`
	Quantity     int                   `json:"quantity" validate:"min=0"`
	Status       *bool                 `json:"status,omitempty"`
	ProductImage *string               `json:"product_image,omitempty"`
}

// UpdateProductInput is a partial update; nil fields are left unchanged.
type UpdateProductInput struct {
	ProductName  *string                `json:"product_name,omitempty" validate:"omitempty,max=200"`
	Description  *string                `json:"description,omitempty"`
	Price        *decimal.Decimal       `json:"price,omitempty"`
	Company      *string                `json:"company,omitempty"`
	Category     *enums.ProductCategory `json:"category,omitempty"`
	Quantity     *int                   `json:"quantity,omitempty" validate:"omitempty,min=0"`
	Status       *bool                  `json:"status,omitempty"`
	ProductImage *string                `json:"product_image,omitempty"`
}

// SetStatusInput is the body of the status toggle endpoint.
type SetStatusInput struct {
	Status *bool `json:"status" validate:"required"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService builds the product service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// ListProducts returns one page of the catalog.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Filters.Category != nil && !input.Filters.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if input.Filters.PriceMin != nil && input.Filters.PriceMax != nil && input.Filters.PriceMin.GreaterThan(*input.Filters.PriceMax) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min cannot exceed price_max")
	}
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	result, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// GetProduct loads an active listing. Inactive products read as missing.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Status {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(product), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.ProductName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_name is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	status := true
	if input.Status != nil {
		status = *input.Status
	}

	product := &models.Product{
		ID:           uuid.New(),
		ProductName:  name,
		Description:  input.Description,
		Price:        input.Price,
		Company:      input.Company,
		Category:     input.Category,
		Quantity:     input.Quantity,
		Status:       status,
		ProductImage: input.ProductImage,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return NewProductDTO(created), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.ProductName != nil && strings.TrimSpace(*input.ProductName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_name cannot be empty")
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
	}
	if input.Category != nil && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	var updated *models.Product
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		applyUpdateToProduct(product, input)
		updated, err = txRepo.UpdateProduct(ctx, product)
		return err
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes a listing.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) SetStatus(ctx context.Context, productID uuid.UUID, active bool) (*ProductDTO, error) {
	if err := s.repo.SetStatus(ctx, productID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product status")
	}
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) load(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func validatePrice(price decimal.Decimal) error {
	if err := money.NonNegative(price); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price cannot be negative")
	}
	return nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.ProductName != nil {
		product.ProductName = strings.TrimSpace(*input.ProductName)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Company != nil {
		product.Company = input.Company
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
	if input.ProductImage != nil {
		product.ProductImage = input.ProductImage
	}
}
