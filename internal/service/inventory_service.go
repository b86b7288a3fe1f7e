package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type inventoryRepository interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	FindByID(ctx context.Context, id string) (*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, item *models.InventoryItem) error
	Delete(ctx context.Context, id string) error
}

// UpsertInventoryRequest holds payload for creating or updating stock items.
type UpsertInventoryRequest struct {
	ItemName   string     `json:"item_name" validate:"required"`
	Category   string     `json:"category" validate:"required"`
	Quantity   int        `json:"quantity" validate:"gte=0"`
	Unit       string     `json:"unit" validate:"required"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// InventoryService manages feeding program stock and derives alert flags on
// every read; flag state is never persisted.
type InventoryService struct {
	repo       inventoryRepository
	thresholds models.StockThresholds
	validator  *validator.Validate
	audit      auditWriter
	logger     *zap.Logger
	now        func() time.Time
}

// NewInventoryService constructs the inventory service.
func NewInventoryService(repo inventoryRepository, thresholds models.StockThresholds, validate *validator.Validate, audit auditWriter, logger *zap.Logger) *InventoryService {
	if thresholds.Low <= 0 || thresholds.Critical <= 0 {
		thresholds = models.DefaultStockThresholds()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		repo:       repo,
		thresholds: thresholds,
		validator:  validate,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

func inventoryFieldIndex() FieldIndex[models.InventoryItemStatus] {
	return FieldIndex[models.InventoryItemStatus]{
		Text: map[string]func(models.InventoryItemStatus) string{
			"item_name": func(i models.InventoryItemStatus) string { return i.ItemName },
			"category":  func(i models.InventoryItemStatus) string { return i.Category },
			"unit":      func(i models.InventoryItemStatus) string { return i.Unit },
		},
		Numeric: map[string]func(models.InventoryItemStatus) float64{
			"quantity": func(i models.InventoryItemStatus) float64 { return float64(i.Quantity) },
		},
	}
}

// List returns inventory with derived flags, filtered and paginated.
func (s *InventoryService) List(ctx context.Context, filter models.InventoryFilter) ([]models.InventoryItemStatus, *models.Pagination, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to list inventory")
	}
	decorated := make([]models.InventoryItemStatus, 0, len(items))
	now := s.now().UTC()
	for _, item := range items {
		status := s.decorate(item, now)
		if filter.LowStock != nil && status.IsLowStock != *filter.LowStock {
			continue
		}
		decorated = append(decorated, status)
	}

	spec := FilterSpec{Search: filter.Search, Fields: []string{"item_name", "category"}, Equals: map[string]string{}}
	if filter.Category != "" {
		spec.Equals["category"] = filter.Category
	}
	matched := ApplyFilter(decorated, spec, inventoryFieldIndex())

	// PageSize < 0 disables pagination (used by exports).
	if filter.PageSize < 0 {
		return matched, &models.Pagination{Page: 1, PageSize: len(matched), TotalCount: len(matched)}, nil
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size == 0 {
		size = 20
	}
	paged, total := Paginate(matched, page, size)
	return paged, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one stock item with derived flags.
func (s *InventoryService) Get(ctx context.Context, id string) (*models.InventoryItemStatus, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}
	status := s.decorate(*item, s.now().UTC())
	return &status, nil
}

// Create registers a stock item.
func (s *InventoryService) Create(ctx context.Context, req UpsertInventoryRequest) (*models.InventoryItemStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inventory payload")
	}
	item := &models.InventoryItem{
		ItemName:   req.ItemName,
		Category:   req.Category,
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		ExpiryDate: req.ExpiryDate,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create inventory item")
	}
	s.writeAudit(ctx, item.ID, "created "+item.ItemName)
	status := s.decorate(*item, s.now().UTC())
	return &status, nil
}

// Update modifies a stock item.
func (s *InventoryService) Update(ctx context.Context, id string, req UpsertInventoryRequest) (*models.InventoryItemStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inventory payload")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}
	item.ItemName = req.ItemName
	item.Category = req.Category
	item.Quantity = req.Quantity
	item.Unit = req.Unit
	item.ExpiryDate = req.ExpiryDate
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory item")
	}
	s.writeAudit(ctx, item.ID, "updated "+item.ItemName)
	status := s.decorate(*item, s.now().UTC())
	return &status, nil
}

// Delete removes a stock item.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete inventory item")
	}
	s.writeAudit(ctx, id, "deleted")
	return nil
}

// Alerts returns only the items needing attention: low stock or expired.
func (s *InventoryService) Alerts(ctx context.Context) ([]models.InventoryItemStatus, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to list inventory")
	}
	now := s.now().UTC()
	alerts := make([]models.InventoryItemStatus, 0)
	for _, item := range items {
		status := s.decorate(item, now)
		if status.IsLowStock || status.IsExpired {
			alerts = append(alerts, status)
		}
	}
	return alerts, nil
}

func (s *InventoryService) decorate(item models.InventoryItem, now time.Time) models.InventoryItemStatus {
	return models.InventoryItemStatus{
		InventoryItem: item,
		IsLowStock:    item.LowStock(s.thresholds),
		IsCritical:    item.CriticalStock(s.thresholds),
		IsExpired:     item.Expired(now),
	}
}

func (s *InventoryService) writeAudit(ctx context.Context, id, detail string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     models.AuditActionInventoryWrite,
		Resource:   "inventory",
		ResourceID: &id,
		Detail:     detail,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist inventory audit log", zap.Error(err))
	}
}
