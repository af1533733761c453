package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
	"github.com/jwalitptl/jobboard-messaging/pkg/auth"
	"github.com/jwalitptl/jobboard-messaging/pkg/httputil"
)

const (
	ContextSession = "session"
	// QueryAccessToken carries the token on websocket upgrades, where
	// browsers cannot set an Authorization header.
	QueryAccessToken = "access_token"
)

type AuthMiddleware struct {
	tokens auth.JWTService
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the JWT token and stores the session in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.NewErrorResponse("missing authorization header"))
			return
		}

		session, err := m.tokens.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.NewErrorResponse("invalid token"))
			return
		}

		c.Set(ContextSession, *session)
		c.Next()
	}
}

// RequireRole rejects sessions acting in any other role.
func (m *AuthMiddleware) RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.NewErrorResponse("not authenticated"))
			return
		}
		if session.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, httputil.NewErrorResponse("permission denied"))
			return
		}
		c.Next()
	}
}

// GetSession returns the session stored by Authenticate.
func GetSession(c *gin.Context) (model.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return model.Session{}, false
	}
	session, ok := v.(model.Session)
	return session, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		if token := c.Query(QueryAccessToken); token != "" {
			return token, true
		}
	}
	return "", false
}
