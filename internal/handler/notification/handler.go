package notification

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/middleware"
	"github.com/jwalitptl/jobboard-messaging/internal/model"
	notificationService "github.com/jwalitptl/jobboard-messaging/internal/service/notification"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/httputil"
)

type Handler struct {
	service *notificationService.Service
}

func NewHandler(service *notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/read-all", h.MarkAllAsRead)
		notifications.POST("/:id/read", h.MarkAsRead)
	}
}

func (h *Handler) List(c *gin.Context) {
	session, _ := middleware.GetSession(c)

	var filter model.NotificationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid query parameters", err))
		return
	}
	filter.Pagination = filter.Pagination.Normalize()

	list, err := h.service.List(c.Request.Context(), session.UserID, session.Role, filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if list == nil {
		list = []*model.Notification{}
	}
	httputil.RespondWithPagination(c, list, filter.Limit, filter.Offset, len(list))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	session, _ := middleware.GetSession(c)

	count, err := h.service.UnreadCount(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"count": count})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), session.UserID, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"success": true})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	session, _ := middleware.GetSession(c)

	n, err := h.service.MarkAllAsRead(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"success": true, "updated": n})
}
