package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/teahouse-backend/pkg/db/models"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/angelmondragon/teahouse-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  profiles_id TEXT NOT NULL,
  order_status TEXT NOT NULL DEFAULT 'Pending',
  shipping_address TEXT NOT NULL,
  payment_intent_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderProducts := `
CREATE TABLE IF NOT EXISTS order_products (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT,
  product_name TEXT NOT NULL,
  product_quantity INTEGER NOT NULL,
  product_price NUMERIC NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderProducts).Error)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedOrder(t *testing.T, repo Repository, profileID uuid.UUID, createdAt time.Time, lines ...models.OrderProduct) *models.Order {
	t.Helper()

	order, err := repo.CreateOrder(context.Background(), &models.Order{
		ProfileID:       profileID,
		OrderStatus:     enums.OrderStatusPending,
		ShippingAddress: "12 Tea Lane",
		CreatedAt:       createdAt,
	})
	require.NoError(t, err)

	for i := range lines {
		lines[i].OrderID = order.ID
	}
	require.NoError(t, repo.CreateOrderProducts(context.Background(), lines))
	return order
}

func TestRepositoryCreateAndFindOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	profileID := uuid.New()
	productID := "p1"

	order := seedOrder(t, repo, profileID, time.Now().UTC(), models.OrderProduct{
		ProductID:       &productID,
		ProductName:     "Green Tea",
		ProductQuantity: 3,
		ProductPrice:    decimal.NewFromInt(90),
	})
	require.NotEqual(t, uuid.Nil, order.ID)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, profileID, found.ProfileID)
	assert.Equal(t, enums.OrderStatusPending, found.OrderStatus)
	require.Len(t, found.Products, 1)
	assert.Equal(t, "Green Tea", found.Products[0].ProductName)
	assert.Equal(t, 3, found.Products[0].ProductQuantity)
	assert.True(t, found.Products[0].ProductPrice.Equal(decimal.NewFromInt(90)))

	dto := FromModel(*found)
	assert.True(t, dto.Total.Equal(decimal.NewFromInt(270)))
}

func TestRepositoryFindMissingOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepositoryListByProfilePaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	profileID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	oldest := seedOrder(t, repo, profileID, base)
	middle := seedOrder(t, repo, profileID, base.Add(time.Hour))
	newest := seedOrder(t, repo, profileID, base.Add(2*time.Hour))
	seedOrder(t, repo, uuid.New(), base.Add(3*time.Hour))

	first, cursor, err := repo.ListByProfile(context.Background(), profileID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, newest.ID, first[0].ID)
	assert.Equal(t, middle.ID, first[1].ID)
	require.NotNil(t, cursor)

	second, next, err := repo.ListByProfile(context.Background(), profileID, pagination.Params{
		Limit:  2,
		Cursor: pagination.EncodeCursor(*cursor),
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, oldest.ID, second[0].ID)
	assert.Nil(t, next)
}

func TestRepositoryListAllFiltersStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pending := seedOrder(t, repo, uuid.New(), base)
	accepted := seedOrder(t, repo, uuid.New(), base.Add(time.Minute))
	require.NoError(t, repo.UpdateStatus(context.Background(), accepted.ID, enums.OrderStatusAccepted))

	all, _, err := repo.ListAll(context.Background(), pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := enums.OrderStatusPending
	filtered, _, err := repo.ListAll(context.Background(), pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, pending.ID, filtered[0].ID)
}

func TestRepositoryUpdateStatusMissingOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	err := repo.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatusPicked)
	require.ErrorIs(t, err, ErrOrderNotFound)
}
