package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"petsoft/internal/auth"
	"petsoft/internal/domain"
	"petsoft/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgInvalidForm})
		return
	}

	user, err := h.users.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}
	c.Redirect(http.StatusSeeOther, "/payment")
}

func (h *Handler) logIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgInvalidForm})
		return
	}

	user, err := h.users.Authorize(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": service.MsgInvalidCredentials})
			return
		}
		h.logger.WithError(err).Error("login")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong."})
		return
	}

	if !h.startSession(c, user) {
		return
	}
	c.Redirect(http.StatusSeeOther, "/app/dashboard")
}

func (h *Handler) logOut(c *gin.Context) {
	if session, ok := auth.FromContext(c.Request.Context()); ok {
		if err := h.sessions.Revoke(c.Request.Context(), session.ID); err != nil {
			h.logger.WithError(err).Warn("revoke session")
		}
	}
	h.setSessionCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) me(c *gin.Context) {
	session, _ := auth.FromContext(c.Request.Context())
	user, err := h.users.GetByID(c.Request.Context(), session.UserID)
	if err != nil {
		h.unauthenticated(c)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

// startSession issues a session for user and sets the cookie. It writes the
// error response itself and reports false on failure.
func (h *Handler) startSession(c *gin.Context, user *domain.User) bool {
	token, session, err := h.sessions.Issue(c.Request.Context(), user)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Error("issue session")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not sign in."})
		return false
	}
	h.setSessionCookie(c, token, int(h.sessions.TTL().Seconds()))
	c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
	return true
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", h.cookieSecure, true)
}
