package handler

import (
	"net/http"
	"strconv"

	"farmops/internal/domain/model"
	"farmops/internal/middleware"
	"farmops/internal/repository"
	"farmops/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /inventory/items 以下
type InventoryHandler struct {
	uc *usecase.InventoryUsecase
}

func NewInventoryHandler(uc *usecase.InventoryUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

type ItemCreateRequest struct {
	Name            string          `json:"name" validate:"required,max=255"`
	Category        string          `json:"category" validate:"required"`
	Quantity        int64           `json:"quantity" validate:"gte=0"`
	MinStockLevel   int64           `json:"min_stock_level" validate:"gte=0"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AcquisitionDate string          `json:"acquisition_date"`
}

type ItemUpdateRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=255"`
	Quantity      *int64           `json:"quantity" validate:"omitempty,gte=0"`
	MinStockLevel *int64           `json:"min_stock_level" validate:"omitempty,gte=0"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
}

type StockAdjustRequest struct {
	EventType      string `json:"event_type" validate:"required"`
	QuantityChange int64  `json:"quantity_change" validate:"ne=0"`
	Reason         string `json:"reason" validate:"max=500"`
	Correction     bool   `json:"correction"`
}

func (h *InventoryHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/inventory/items")
	g.Use(auth)

	writers := middleware.RoleGuard(middleware.RoleAdmin, middleware.RoleManager)

	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.GET("/:id/events", h.events)
	g.GET("/:id/ledger", h.ledger)
	g.POST("", h.create, writers)
	g.PUT("/:id", h.update, writers)
	g.DELETE("/:id", h.delete, writers)
	g.POST("/:id/adjustments", h.adjust, writers)
}

func (h *InventoryHandler) create(c echo.Context) error {
	var req ItemCreateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	acquired, err := parseOptionalDate(req.AcquisitionDate)
	if err != nil {
		return badRequest(c, "invalid acquisition_date")
	}

	item, err := h.uc.CreateItem(c.Request().Context(), usecase.CreateItemInput{
		Name:            req.Name,
		Category:        model.ItemCategory(req.Category),
		Quantity:        req.Quantity,
		MinStockLevel:   req.MinStockLevel,
		UnitPrice:       req.UnitPrice,
		AcquisitionDate: acquired,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) list(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	minStock, err := queryInt64Ptr(c, "min_stock")
	if err != nil {
		return badRequest(c, "invalid min_stock")
	}

	q := repository.ItemListQuery{
		Page:     page,
		Limit:    limit,
		MinStock: minStock,
		Sort:     normalizeItemSort(c.QueryParam("sort")),
	}
	if v := c.QueryParam("category"); v != "" {
		cat := model.ItemCategory(v)
		q.Category = &cat
	}
	if v := c.QueryParam("re_order_need"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid re_order_need")
		}
		q.ReOrderNeed = &b
	}

	out, err := h.uc.ListItems(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// stockLevel表記も受け付ける
func normalizeItemSort(v string) string {
	switch v {
	case "stockLevel":
		return "stock_level"
	case "-stockLevel":
		return "-stock_level"
	}
	return v
}

func (h *InventoryHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	item, err := h.uc.GetItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req ItemUpdateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	item, err := h.uc.UpdateItem(c.Request().Context(), userID, id, usecase.UpdateItemInput{
		Name:          req.Name,
		MinStockLevel: req.MinStockLevel,
		UnitPrice:     req.UnitPrice,
		Quantity:      req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.DeleteItem(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *InventoryHandler) adjust(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req StockAdjustRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.uc.AdjustStock(c.Request().Context(), userID, id, usecase.AdjustStockInput{
		EventType:      model.InventoryEventType(req.EventType),
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		Correction:     req.Correction,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) events(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return badRequest(c, "invalid offset")
	}

	events, err := h.uc.ListEvents(c.Request().Context(), id, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

func (h *InventoryHandler) ledger(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.VerifyLedger(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
