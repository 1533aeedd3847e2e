package handler

import (
	"net/http"

	"farmops/internal/domain/model"
	"farmops/internal/middleware"
	"farmops/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /api/supply-chain 以下（苗木の仕入れと配送）
type SupplyChainHandler struct {
	purchases  *usecase.PurchaseUsecase
	deliveries *usecase.DeliveryUsecase
}

func NewSupplyChainHandler(purchases *usecase.PurchaseUsecase, deliveries *usecase.DeliveryUsecase) *SupplyChainHandler {
	return &SupplyChainHandler{purchases: purchases, deliveries: deliveries}
}

type SeedlingPurchaseRequest struct {
	ItemID       int64           `json:"item_id" validate:"gte=0"`
	Supplier     string          `json:"supplier" validate:"required,max=255"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
	Cost         decimal.Decimal `json:"cost"`
	PurchaseDate string          `json:"purchase_date" validate:"required"`
}

type SeedlingPurchaseUpdateRequest struct {
	Supplier *string `json:"supplier" validate:"omitempty,max=255"`
	Quantity *int64  `json:"quantity" validate:"omitempty,gt=0"`
}

type DeliveryScheduleRequest struct {
	DeliveryDate string `json:"delivery_date" validate:"required"`
	Quantity     int64  `json:"quantity" validate:"gt=0"`
	Destination  string `json:"destination" validate:"required,max=255"`
	ItemID       int64  `json:"item_id" validate:"gt=0"`
	CustomerID   int64  `json:"customer_id" validate:"gt=0"`
}

type DeliveryUpdateRequest struct {
	NewDeliveryDate   string                 `json:"new_delivery_date" validate:"required"`
	UpdatedQuantities []usecase.ItemQuantity `json:"updated_quantities"`
}

func (h *SupplyChainHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/api/supply-chain")
	g.Use(auth)

	writers := middleware.RoleGuard(middleware.RoleAdmin, middleware.RoleManager)

	g.GET("/seedlings", h.listSeedlings)
	g.GET("/seedlings/:id", h.getPurchase)
	g.POST("/seedlings", h.addPurchase, writers)
	g.PUT("/seedlings/:id", h.updatePurchase, writers)
	g.DELETE("/seedlings/:id", h.deletePurchase, writers)

	g.GET("/deliveries", h.listDeliveries)
	g.POST("/deliveries", h.scheduleDelivery)
	g.PUT("/deliveries/:id", h.updateDelivery)
	g.POST("/deliveries/:id/complete", h.completeDelivery)
	g.POST("/deliveries/:id/cancel", h.cancelDelivery)
	g.DELETE("/deliveries/:id", h.cancelDelivery)
}

func (h *SupplyChainHandler) listSeedlings(c echo.Context) error {
	out, err := h.purchases.ListSeedlings(c.Request().Context(), model.ItemCategory(c.QueryParam("category")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) getPurchase(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.purchases.GetPurchase(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) addPurchase(c echo.Context) error {
	var req SeedlingPurchaseRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	purchasedAt, err := parseDate(req.PurchaseDate)
	if err != nil {
		return badRequest(c, "invalid purchase_date")
	}

	out, err := h.purchases.AddPurchase(c.Request().Context(), usecase.AddPurchaseInput{
		ItemID:       req.ItemID,
		Supplier:     req.Supplier,
		Quantity:     req.Quantity,
		Cost:         req.Cost,
		PurchaseDate: purchasedAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) updatePurchase(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req SeedlingPurchaseUpdateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.purchases.UpdatePurchase(c.Request().Context(), id, usecase.UpdatePurchaseInput{
		Supplier: req.Supplier,
		Quantity: req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) deletePurchase(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.purchases.DeletePurchase(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *SupplyChainHandler) scheduleDelivery(c echo.Context) error {
	var req DeliveryScheduleRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.DeliveryDate)
	if err != nil {
		return badRequest(c, "invalid delivery_date")
	}

	out, err := h.deliveries.ScheduleDelivery(c.Request().Context(), usecase.ScheduleDeliveryInput{
		DeliveryDate:   date,
		Quantity:       req.Quantity,
		Destination:    req.Destination,
		ItemID:         req.ItemID,
		CustomerID:     req.CustomerID,
		IdempotencyKey: c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) updateDelivery(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req DeliveryUpdateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.NewDeliveryDate)
	if err != nil {
		return badRequest(c, "invalid new_delivery_date")
	}

	out, err := h.deliveries.UpdateDelivery(c.Request().Context(), id, usecase.UpdateDeliveryInput{
		NewDeliveryDate:   date,
		UpdatedQuantities: req.UpdatedQuantities,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) completeDelivery(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.deliveries.CompleteDelivery(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) cancelDelivery(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.deliveries.CancelDelivery(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SupplyChainHandler) listDeliveries(c echo.Context) error {
	start, err := parseOptionalDate(c.QueryParam("start_date"))
	if err != nil {
		return badRequest(c, "invalid start_date")
	}
	end, err := parseOptionalDate(c.QueryParam("end_date"))
	if err != nil {
		return badRequest(c, "invalid end_date")
	}

	in := usecase.ListDeliveriesInput{StartDate: start, EndDate: end}
	if v := c.QueryParam("status"); v != "" {
		s := model.ScheduleStatus(v)
		in.Status = &s
	}
	if v := c.QueryParam("category"); v != "" {
		cat := model.ItemCategory(v)
		in.Category = &cat
	}

	out, err := h.deliveries.ListDeliveries(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
