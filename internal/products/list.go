package product

import (
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/angelmondragon/teahouse-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category *enums.ProductCategory `json:"category,omitempty"`
	PriceMin *decimal.Decimal       `json:"price_min,omitempty"`
	PriceMax *decimal.Decimal       `json:"price_max,omitempty"`
	Query    string                 `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter products.
// IncludeInactive is only honored for admin listings.
type ListProductsInput struct {
	Filters         ProductListFilters
	Pagination      pagination.Params
	IncludeInactive bool
}
