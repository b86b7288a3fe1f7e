package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	"github.com/nutricare-ph/nutricare-api/internal/service"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
	"github.com/nutricare-ph/nutricare-api/pkg/response"
)

// InventoryHandler exposes feeding program stock endpoints.
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler constructs handler.
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// List godoc
// @Summary List stock items with alert flags
// @Tags Inventory
// @Produce json
// @Param search query string false "Item name or category substring"
// @Param category query string false "Category"
// @Param lowStock query bool false "Only low-stock items"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	filter := models.InventoryFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "pageSize", 20),
	}
	if raw := c.Query("lowStock"); raw != "" {
		lowStock, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lowStock must be a boolean"))
			return
		}
		filter.LowStock = &lowStock
	}
	items, pagination, err := h.inventory.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Stock item detail
// @Tags Inventory
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	item, err := h.inventory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Register a stock item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body service.UpsertInventoryRequest true "Item"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req service.UpsertInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inventory payload"))
		return
	}
	item, err := h.inventory.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update a stock item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body service.UpsertInventoryRequest true "Item"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/{id} [put]
func (h *InventoryHandler) Update(c *gin.Context) {
	var req service.UpsertInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inventory payload"))
		return
	}
	item, err := h.inventory.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Remove a stock item
// @Tags Inventory
// @Param id path string true "Item ID"
// @Success 204
// @Security BearerAuth
// @Router /inventory/{id} [delete]
func (h *InventoryHandler) Delete(c *gin.Context) {
	if err := h.inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Alerts godoc
// @Summary Stock items needing attention
// @Tags Inventory
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/alerts [get]
func (h *InventoryHandler) Alerts(c *gin.Context) {
	alerts, err := h.inventory.Alerts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil)
}
