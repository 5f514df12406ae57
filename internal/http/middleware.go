package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"petsoft/internal/auth"
	"petsoft/internal/repository"
)

const userKey = "petsoft.user"

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if s, ok := auth.FromContext(c.Request.Context()); ok {
			entry = entry.WithField("user_id", s.UserID)
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Debug("request")
		}
	}
}

// loadSession attaches the caller's session, if any, to the request context.
// It never rejects a request; requireSession does that.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(sessionCookie)
		}
		if token == "" {
			c.Next()
			return
		}

		session, err := h.sessions.Parse(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				h.logger.WithError(err).Warn("session lookup failed")
			}
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// requireSession sends browsers to the login page and JSON clients a 401.
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.RequireSession(c.Request.Context()); err != nil {
			h.unauthenticated(c)
			return
		}
		c.Next()
	}
}

// requireAccess checks the paid flag on every request so a completed payment
// takes effect without signing in again.
func (h *Handler) requireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := auth.RequireSession(c.Request.Context())
		if err != nil {
			h.unauthenticated(c)
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), session.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				h.unauthenticated(c)
				return
			}
			h.logger.WithError(err).WithField("user_id", session.UserID).Error("load user for access check")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Could not load user."})
			return
		}
		c.Set(userKey, user)

		if h.accessRequired && !user.HasAccess {
			if wantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"message": "Payment required."})
				return
			}
			c.Redirect(http.StatusSeeOther, "/payment")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) unauthenticated(c *gin.Context) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated."})
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
	c.Abort()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// wantsJSON is true for API clients: bearer auth or an Accept header that
// asks for JSON.
func wantsJSON(c *gin.Context) bool {
	if bearerToken(c) != "" {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
