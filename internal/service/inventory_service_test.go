package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type mockInventoryRepo struct {
	items   map[string]models.InventoryItem
	deleted []string
}

func (m *mockInventoryRepo) List(ctx context.Context) ([]models.InventoryItem, error) {
	items := make([]models.InventoryItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

func (m *mockInventoryRepo) FindByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	if item, ok := m.items[id]; ok {
		return &item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInventoryRepo) Create(ctx context.Context, item *models.InventoryItem) error {
	if m.items == nil {
		m.items = make(map[string]models.InventoryItem)
	}
	if item.ID == "" {
		item.ID = "generated"
	}
	m.items[item.ID] = *item
	return nil
}

func (m *mockInventoryRepo) Update(ctx context.Context, item *models.InventoryItem) error {
	m.items[item.ID] = *item
	return nil
}

func (m *mockInventoryRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func inventoryServiceForTest(items map[string]models.InventoryItem) (*InventoryService, *mockInventoryRepo) {
	repo := &mockInventoryRepo{items: items}
	svc := NewInventoryService(repo, models.StockThresholds{Low: 10, Critical: 5}, validator.New(), nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestInventoryServiceDerivesFlags(t *testing.T) {
	expired := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := inventoryServiceForTest(map[string]models.InventoryItem{
		"critical": {ID: "critical", ItemName: "Rice Pack", Category: "staple", Quantity: 3, Unit: "pack"},
		"low":      {ID: "low", ItemName: "Milk Formula", Category: "supplement", Quantity: 8, Unit: "can"},
		"expired":  {ID: "expired", ItemName: "Vitamin Syrup", Category: "supplement", Quantity: 50, Unit: "bottle", ExpiryDate: &expired},
		"healthy":  {ID: "healthy", ItemName: "Oats", Category: "staple", Quantity: 100, Unit: "kg"},
	})

	critical, err := svc.Get(context.Background(), "critical")
	require.NoError(t, err)
	assert.True(t, critical.IsLowStock)
	assert.True(t, critical.IsCritical)

	low, err := svc.Get(context.Background(), "low")
	require.NoError(t, err)
	assert.True(t, low.IsLowStock)
	assert.False(t, low.IsCritical)

	expiredItem, err := svc.Get(context.Background(), "expired")
	require.NoError(t, err)
	assert.True(t, expiredItem.IsExpired)
	assert.False(t, expiredItem.IsLowStock)
}

func TestInventoryServiceAlerts(t *testing.T) {
	expired := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := inventoryServiceForTest(map[string]models.InventoryItem{
		"low":     {ID: "low", ItemName: "Milk Formula", Category: "supplement", Quantity: 8, Unit: "can"},
		"expired": {ID: "expired", ItemName: "Vitamin Syrup", Category: "supplement", Quantity: 50, Unit: "bottle", ExpiryDate: &expired},
		"healthy": {ID: "healthy", ItemName: "Oats", Category: "staple", Quantity: 100, Unit: "kg"},
	})

	alerts, err := svc.Alerts(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
	for _, alert := range alerts {
		assert.NotEqual(t, "healthy", alert.ID)
	}
}

func TestInventoryServiceListLowStockFilter(t *testing.T) {
	svc, _ := inventoryServiceForTest(map[string]models.InventoryItem{
		"low":     {ID: "low", ItemName: "Milk Formula", Category: "supplement", Quantity: 8, Unit: "can"},
		"healthy": {ID: "healthy", ItemName: "Oats", Category: "staple", Quantity: 100, Unit: "kg"},
	})

	lowOnly := true
	items, pagination, err := svc.List(context.Background(), models.InventoryFilter{LowStock: &lowOnly})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "low", items[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestInventoryServiceCreateValidation(t *testing.T) {
	svc, _ := inventoryServiceForTest(nil)

	_, err := svc.Create(context.Background(), UpsertInventoryRequest{ItemName: "Rice", Category: "staple", Quantity: -1, Unit: "kg"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	item, err := svc.Create(context.Background(), UpsertInventoryRequest{ItemName: "Rice", Category: "staple", Quantity: 2, Unit: "kg"})
	require.NoError(t, err)
	assert.True(t, item.IsCritical)
}

func TestInventoryServiceDelete(t *testing.T) {
	svc, repo := inventoryServiceForTest(map[string]models.InventoryItem{
		"i1": {ID: "i1", ItemName: "Rice", Category: "staple", Quantity: 2, Unit: "kg"},
	})

	require.NoError(t, svc.Delete(context.Background(), "i1"))
	assert.Contains(t, repo.deleted, "i1")

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
