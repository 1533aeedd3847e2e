package handler

import (
	"net/http"

	"farmops/internal/domain/model"
	"farmops/internal/middleware"
	"farmops/internal/repository"
	"farmops/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type SaleHandler struct {
	uc *usecase.SaleUsecase
}

func NewSaleHandler(uc *usecase.SaleUsecase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

type SaleCreateRequest struct {
	OrderID       int64           `json:"order_id" validate:"gt=0"`
	Amount        decimal.Decimal `json:"amount"`
	SaleDate      string          `json:"sale_date" validate:"required"`
	PaymentStatus string          `json:"payment_status"`
}

type SaleUpdateRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	SaleDate      *string          `json:"sale_date"`
	PaymentStatus *string          `json:"payment_status"`
}

func (h *SaleHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/sales")
	g.Use(auth)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete, middleware.RoleGuard(middleware.RoleAdmin))
}

func (h *SaleHandler) create(c echo.Context) error {
	var req SaleCreateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.SaleDate)
	if err != nil {
		return badRequest(c, "invalid sale_date")
	}

	out, err := h.uc.CreateSale(c.Request().Context(), usecase.CreateSaleInput{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		SaleDate:      date,
		PaymentStatus: model.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) list(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	orderID, err := queryInt64Ptr(c, "order_id")
	if err != nil {
		return badRequest(c, "invalid order_id")
	}

	f := repository.SaleListFilter{Page: page, Limit: limit, OrderID: orderID}
	if v := c.QueryParam("payment_status"); v != "" {
		s := model.PaymentStatus(v)
		f.PaymentStatus = &s
	}

	out, err := h.uc.ListSales(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.GetSale(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req SaleUpdateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	in := usecase.UpdateSaleInput{Amount: req.Amount}
	if req.SaleDate != nil {
		d, err := parseDate(*req.SaleDate)
		if err != nil {
			return badRequest(c, "invalid sale_date")
		}
		in.SaleDate = &d
	}
	if req.PaymentStatus != nil {
		s := model.PaymentStatus(*req.PaymentStatus)
		in.PaymentStatus = &s
	}

	out, err := h.uc.UpdateSale(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.DeleteSale(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
