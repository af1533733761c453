package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/jobboard-messaging/internal/middleware"
	"github.com/jwalitptl/jobboard-messaging/internal/realtime"
	"github.com/jwalitptl/jobboard-messaging/pkg/httputil"
)

type Handler struct {
	gateway *realtime.Gateway
}

func NewHandler(gateway *realtime.Gateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/realtime", h.Connect)
}

// Connect upgrades the request into a realtime session for the caller.
func (h *Handler) Connect(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.NewErrorResponse("not authenticated"))
		return
	}
	h.gateway.Serve(c.Writer, c.Request, session)
}
