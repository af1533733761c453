package conversation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/middleware"
	conversationService "github.com/jwalitptl/jobboard-messaging/internal/service/conversation"
	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/httputil"
)

type Handler struct {
	service *conversationService.Service
}

func NewHandler(service *conversationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	conversations := r.Group("/conversations")
	{
		conversations.POST("", h.GetOrCreateConversation)
		conversations.GET("", h.ListConversations)
		conversations.GET("/:id/messages", h.FetchMessages)
		conversations.POST("/:id/messages", h.SendMessage)
		conversations.POST("/:id/read", h.MarkRead)
	}
}

type startConversationRequest struct {
	JobID      string `json:"job_id" binding:"required,uuid"`
	SeekerID   string `json:"seeker_id" binding:"required,uuid"`
	EmployerID string `json:"employer_id" binding:"required,uuid"`
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) GetOrCreateConversation(c *gin.Context) {
	session, _ := middleware.GetSession(c)

	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindError(err))
		return
	}

	conv, err := h.service.GetOrCreateConversation(c.Request.Context(), session.UserID,
		uuid.MustParse(req.JobID), uuid.MustParse(req.SeekerID), uuid.MustParse(req.EmployerID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{
		"conversation_id": conv.ID,
		"conversation":    conv,
	})
}

func (h *Handler) ListConversations(c *gin.Context) {
	session, _ := middleware.GetSession(c)

	summaries, err := h.service.ListConversations(c.Request.Context(), session.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summaries)
}

func (h *Handler) FetchMessages(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	id, ok := conversationID(c)
	if !ok {
		return
	}

	messages, err := h.service.FetchMessages(c.Request.Context(), session.UserID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, messages)
}

func (h *Handler) SendMessage(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	id, ok := conversationID(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindError(err))
		return
	}

	result, err := h.service.SendMessage(c.Request.Context(), session.UserID, id, req.Content)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, result)
}

func (h *Handler) MarkRead(c *gin.Context) {
	session, _ := middleware.GetSession(c)
	id, ok := conversationID(c)
	if !ok {
		return
	}

	n, err := h.service.MarkConversationRead(c.Request.Context(), session.UserID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"updated": n})
}

func conversationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid conversation ID", err))
		return uuid.Nil, false
	}
	return id, true
}
