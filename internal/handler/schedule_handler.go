package handler

import (
	"net/http"

	"farmops/internal/domain/model"
	"farmops/internal/middleware"
	"farmops/internal/repository"
	"farmops/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /staff-schedules と /schedules
type ScheduleHandler struct {
	uc *usecase.ScheduleUsecase
}

func NewScheduleHandler(uc *usecase.ScheduleUsecase) *ScheduleHandler {
	return &ScheduleHandler{uc: uc}
}

type ScheduleCreateRequest struct {
	Type        string `json:"type" validate:"required"`
	ScheduledOn string `json:"scheduled_on" validate:"required"`
	UserID      *int64 `json:"user_id"`
	Notes       string `json:"notes" validate:"max=2000"`
}

func (h *ScheduleHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	staff := e.Group("/staff-schedules")
	staff.Use(auth)
	staff.POST("", h.create)
	staff.GET("", h.list)

	g := e.Group("/schedules")
	g.Use(auth)
	g.GET("/:id", h.detail)
	g.DELETE("/:id", h.delete, middleware.RoleGuard(middleware.RoleAdmin, middleware.RoleManager))
}

func (h *ScheduleHandler) create(c echo.Context) error {
	var req ScheduleCreateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	on, err := parseDate(req.ScheduledOn)
	if err != nil {
		return badRequest(c, "invalid scheduled_on")
	}

	out, err := h.uc.CreateSchedule(c.Request().Context(), usecase.CreateScheduleInput{
		Type:        model.ScheduleType(req.Type),
		ScheduledOn: on,
		UserID:      req.UserID,
		Notes:       req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) list(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	userID, err := queryInt64Ptr(c, "user_id")
	if err != nil {
		return badRequest(c, "invalid user_id")
	}
	from, err := parseOptionalDate(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, "invalid from")
	}
	to, err := parseOptionalDate(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, "invalid to")
	}

	f := repository.ScheduleListFilter{Page: page, Limit: limit, UserID: userID, From: from, To: to}
	if v := c.QueryParam("type"); v != "" {
		t := model.ScheduleType(v)
		f.Type = &t
	}
	if v := c.QueryParam("status"); v != "" {
		s := model.ScheduleStatus(v)
		f.Status = &s
	}

	out, err := h.uc.ListSchedules(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) delete(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.DeleteSchedule(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
