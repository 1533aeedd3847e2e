package handler

import (
	"net/http"

	"farmops/internal/domain/model"
	"farmops/internal/middleware"
	"farmops/internal/repository"
	"farmops/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuditLogHandler struct {
	uc *usecase.AuditLogUsecase
}

func NewAuditLogHandler(uc *usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{uc: uc}
}

func (h *AuditLogHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	admin := e.Group("/admin")
	admin.Use(auth)
	admin.Use(middleware.RoleGuard(middleware.RoleAdmin))

	admin.GET("/audit-logs", h.list)
	admin.GET("/audit-logs/:resource_type/:resource_id", h.timeline)
}

func (h *AuditLogHandler) timeline(c echo.Context) error {
	id, ok := parseIDParam(c, "resource_id")
	if !ok {
		return badRequest(c, "invalid resource_id")
	}
	out, err := h.uc.Timeline(c.Request().Context(), model.AuditResourceType(c.Param("resource_type")), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuditLogHandler) list(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return badRequest(c, "invalid offset")
	}
	actor, err := queryInt64Ptr(c, "actor_user_id")
	if err != nil {
		return badRequest(c, "invalid actor_user_id")
	}
	resourceID, err := queryInt64Ptr(c, "resource_id")
	if err != nil {
		return badRequest(c, "invalid resource_id")
	}
	from, err := parseOptionalDate(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, "invalid from")
	}
	to, err := parseOptionalDate(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, "invalid to")
	}

	f := repository.AuditLogFilter{
		ActorUserID: actor,
		ResourceID:  resourceID,
		CreatedFrom: from,
		CreatedTo:   to,
		Limit:       limit,
		Offset:      offset,
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		r := model.AuditResourceType(v)
		f.ResourceType = &r
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
