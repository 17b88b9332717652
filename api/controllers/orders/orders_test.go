package orders

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/teahouse-backend/api/middleware"
	internalorders "github.com/angelmondragon/teahouse-backend/internal/orders"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/angelmondragon/teahouse-backend/pkg/pagination"
)

type stubOrdersService struct {
	order     *internalorders.OrderDTO
	listedFor uuid.UUID
	filters   internalorders.ListFilters
	params    pagination.Params
	updatedTo enums.OrderStatus
	updateErr error
}

func (s *stubOrdersService) PlaceOrder(ctx context.Context, input internalorders.PlaceOrderInput) (*internalorders.OrderDTO, error) {
	panic("unexpected call")
}

func (s *stubOrdersService) Get(ctx context.Context, id uuid.UUID) (*internalorders.OrderDTO, error) {
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrdersService) ListForProfile(ctx context.Context, profileID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.listedFor = profileID
	s.params = params
	return &internalorders.OrderList{}, nil
}

func (s *stubOrdersService) ListAll(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	s.params = params
	s.filters = filters
	return &internalorders.OrderList{}, nil
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	s.updatedTo = status
	return s.updateErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withOrderID(req *http.Request, orderID string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestListUsesSignedInProfile(t *testing.T) {
	svc := &stubOrdersService{}
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=10", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()

	List(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listedFor != userID || svc.params.Limit != 10 {
		t.Fatalf("unexpected list call: %v %+v", svc.listedFor, svc.params)
	}
}

func TestListRejectsOutOfRangeLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=0", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	List(&stubOrdersService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDetailHidesOtherShoppersOrders(t *testing.T) {
	owner := uuid.New()
	order := &internalorders.OrderDTO{ID: uuid.New(), ProfileID: owner}
	svc := &stubOrdersService{order: order}

	t.Run("owner", func(t *testing.T) {
		req := withOrderID(httptest.NewRequest(http.MethodGet, "/", nil), order.ID.String())
		req = req.WithContext(middleware.WithUserID(req.Context(), owner.String()))
		rec := httptest.NewRecorder()
		Detail(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
	})

	t.Run("someone else", func(t *testing.T) {
		req := withOrderID(httptest.NewRequest(http.MethodGet, "/", nil), order.ID.String())
		req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
		rec := httptest.NewRecorder()
		Detail(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 got %d", rec.Code)
		}
	})
}

func TestAdminListStatusFilter(t *testing.T) {
	svc := &stubOrdersService{}

	rec := httptest.NewRecorder()
	AdminList(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=Picked", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.filters.Status == nil || *svc.filters.Status != enums.OrderStatusPicked {
		t.Fatalf("expected Picked filter, got %+v", svc.filters)
	}

	rec = httptest.NewRecorder()
	AdminList(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=Lost", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", rec.Code)
	}
}

func TestAdminUpdateStatus(t *testing.T) {
	orderID := uuid.New()

	t.Run("success", func(t *testing.T) {
		svc := &stubOrdersService{}
		req := withOrderID(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"Accepted"}`)), orderID.String())
		rec := httptest.NewRecorder()
		AdminUpdateStatus(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
		if svc.updatedTo != enums.OrderStatusAccepted {
			t.Fatalf("expected Accepted, got %s", svc.updatedTo)
		}
	})

	t.Run("final order", func(t *testing.T) {
		svc := &stubOrdersService{updateErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order status is final")}
		req := withOrderID(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"Pending"}`)), orderID.String())
		rec := httptest.NewRecorder()
		AdminUpdateStatus(svc, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 got %d", rec.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		req := withOrderID(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"Pending"}`)), "nope")
		rec := httptest.NewRecorder()
		AdminUpdateStatus(&stubOrdersService{}, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})
}
