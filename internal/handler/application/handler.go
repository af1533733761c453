package application

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/middleware"
	"github.com/jwalitptl/jobboard-messaging/internal/model"
	applicationService "github.com/jwalitptl/jobboard-messaging/internal/service/application"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/httputil"
)

type Handler struct {
	service *applicationService.Service
}

func NewHandler(service *applicationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/jobs/:id/applications", auth.RequireRole(model.RoleSeeker), h.Submit)
	r.PATCH("/applications/:id/status", auth.RequireRole(model.RoleEmployer), h.UpdateStatus)
}

type submitRequest struct {
	CoverLetter *string `json:"cover_letter" binding:"omitempty,max=10000"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,application_status"`
}

func (h *Handler) Submit(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid job ID", err))
		return
	}

	var req submitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, httputil.BindError(err))
			return
		}
	}

	app, err := h.service.Submit(c.Request.Context(), session.UserID, jobID, req.CoverLetter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, app)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid application ID", err))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindError(err))
		return
	}

	app, err := h.service.UpdateStatus(c.Request.Context(), session.UserID, id, model.ApplicationStatus(req.Status))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, app)
}
