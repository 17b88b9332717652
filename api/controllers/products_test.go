package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	product "github.com/angelmondragon/teahouse-backend/internal/products"
	"github.com/angelmondragon/teahouse-backend/internal/reviews"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/angelmondragon/teahouse-backend/pkg/pagination"
)

type stubProductService struct {
	listInput  product.ListProductsInput
	statusSet  *bool
	deletedID  uuid.UUID
	created    *product.CreateProductInput
	getProduct *product.ProductDTO
}

func (s *stubProductService) ListProducts(ctx context.Context, input product.ListProductsInput) (*product.ProductListResult, error) {
	s.listInput = input
	return &product.ProductListResult{Products: []product.ProductDTO{}}, nil
}

func (s *stubProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*product.ProductDTO, error) {
	return s.getProduct, nil
}

func (s *stubProductService) CreateProduct(ctx context.Context, input product.CreateProductInput) (*product.ProductDTO, error) {
	s.created = &input
	return &product.ProductDTO{ID: uuid.New(), ProductName: input.ProductName}, nil
}

func (s *stubProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, input product.UpdateProductInput) (*product.ProductDTO, error) {
	return &product.ProductDTO{ID: productID}, nil
}

func (s *stubProductService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	s.deletedID = productID
	return nil
}

func (s *stubProductService) SetStatus(ctx context.Context, productID uuid.UUID, active bool) (*product.ProductDTO, error) {
	s.statusSet = &active
	return &product.ProductDTO{ID: productID, Status: active}, nil
}

type stubReviewService struct {
	params pagination.Params
}

func (s *stubReviewService) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*reviews.ReviewList, error) {
	s.params = params
	return &reviews.ReviewList{}, nil
}

func TestProductListParsesFilters(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=Coffee&price_min=100&price_max=500&q=+roast+&limit=5", nil)
	rec := httptest.NewRecorder()

	ProductList(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.listInput.Filters.Category)
	require.Equal(t, enums.ProductCategoryCoffee, *svc.listInput.Filters.Category)
	require.Equal(t, "100", svc.listInput.Filters.PriceMin.String())
	require.Equal(t, "500", svc.listInput.Filters.PriceMax.String())
	require.Equal(t, "roast", svc.listInput.Filters.Query)
	require.Equal(t, 5, svc.listInput.Pagination.Limit)
	require.False(t, svc.listInput.IncludeInactive)
}

func TestProductListRejectsInvertedPriceRange(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?price_min=500&price_max=100", nil)
	rec := httptest.NewRecorder()

	ProductList(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductListRejectsUnknownCategory(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=Juice", nil)
	rec := httptest.NewRecorder()

	ProductList(&stubProductService{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminProductListIncludesInactive(t *testing.T) {
	svc := &stubProductService{}
	rec := httptest.NewRecorder()

	AdminProductList(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.listInput.IncludeInactive)
}

func TestProductGetInvalidID(t *testing.T) {
	req := withRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil), "productId", "not-a-uuid")
	rec := httptest.NewRecorder()

	ProductGet(&stubProductService{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductReviewsPaginates(t *testing.T) {
	svc := &stubReviewService{}
	id := uuid.New()
	req := withRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id.String()+"/reviews?limit=3", nil), "productId", id.String())
	rec := httptest.NewRecorder()

	ProductReviews(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 3, svc.params.Limit)
}

func TestAdminProductCreate(t *testing.T) {
	svc := &stubProductService{}
	body := `{"product_name":"Ceylon Black","price":"850.00","category":"Tea","quantity":20}`
	rec := httptest.NewRecorder()

	AdminProductCreate(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.created)
	require.Equal(t, "850", svc.created.Price.String())
}

func TestAdminProductSetStatusRequiresFlag(t *testing.T) {
	svc := &stubProductService{}
	id := uuid.New()

	rec := httptest.NewRecorder()
	req := withRouteParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`)), "productId", id.String())
	AdminProductSetStatus(svc, testLogger()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.statusSet)

	rec = httptest.NewRecorder()
	req = withRouteParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":false}`)), "productId", id.String())
	AdminProductSetStatus(svc, testLogger()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.statusSet)
	require.False(t, *svc.statusSet)
}

func TestAdminProductDelete(t *testing.T) {
	svc := &stubProductService{}
	id := uuid.New()
	rec := httptest.NewRecorder()

	AdminProductDelete(svc, testLogger()).ServeHTTP(rec, withRouteParam(httptest.NewRequest(http.MethodDelete, "/", nil), "productId", id.String()))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, id, svc.deletedID)
}
