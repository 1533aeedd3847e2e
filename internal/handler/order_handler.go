package handler

import (
	"net/http"

	"farmops/internal/middleware"
	"farmops/internal/repository"
	"farmops/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderLineRequest struct {
	ItemID   int64 `json:"item_id" validate:"gt=0"`
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

type OrderCreateRequest struct {
	Items                []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
	CustomerID           int64              `json:"customer_id" validate:"gt=0"`
	ExpectedDeliveryDate string             `json:"expected_delivery_date" validate:"required"`
	CustomerRequests     string             `json:"customer_requests" validate:"max=2000"`
}

type OrderUpdateRequest struct {
	CustomerRequests    string `json:"customer_requests" validate:"max=2000"`
	NewDeliveryDate     string `json:"new_delivery_date" validate:"required"`
	OrderSizeAdjustment int64  `json:"order_size_adjustment" validate:"min=-1000000000,max=1000000000"`
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/orders")
	g.Use(auth)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id", h.update)
	g.PUT("/:id/status", h.updateStatus, middleware.RoleGuard(middleware.RoleAdmin, middleware.RoleManager))
	g.DELETE("/:id", h.delete, middleware.RoleGuard(middleware.RoleAdmin))
}

func (h *OrderHandler) create(c echo.Context) error {
	var req OrderCreateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.ExpectedDeliveryDate)
	if err != nil {
		return badRequest(c, "invalid expected_delivery_date")
	}

	lines := make([]usecase.OrderLineInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, usecase.OrderLineInput{ItemID: it.ItemID, Quantity: it.Quantity})
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	out, err := h.uc.CreateOrder(c.Request().Context(), usecase.CreateOrderInput{
		Items:                lines,
		CustomerID:           req.CustomerID,
		ExpectedDeliveryDate: date,
		CustomerRequests:     req.CustomerRequests,
		IdempotencyKey:       c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	customerID, err := queryInt64Ptr(c, "customer_id")
	if err != nil {
		return badRequest(c, "invalid customer_id")
	}
	from, err := parseOptionalDate(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, "invalid from")
	}
	to, err := parseOptionalDate(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, "invalid to")
	}

	out, err := h.uc.ListOrders(c.Request().Context(), repository.OrderListFilter{
		Page:       page,
		Limit:      limit,
		Status:     c.QueryParam("status"),
		CustomerID: customerID,
		From:       from,
		To:         to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req OrderUpdateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.NewDeliveryDate)
	if err != nil {
		return badRequest(c, "invalid new_delivery_date")
	}

	out, err := h.uc.UpdateOrder(c.Request().Context(), id, usecase.UpdateOrderInput{
		CustomerRequests:    req.CustomerRequests,
		NewDeliveryDate:     date,
		OrderSizeAdjustment: req.OrderSizeAdjustment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req OrderStatusUpdateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.uc.UpdateOrderStatus(c.Request().Context(), userID, id, usecase.UpdateOrderStatusInput{Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) delete(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.DeleteOrder(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
