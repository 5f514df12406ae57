package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"petsoft/internal/auth"
	"petsoft/internal/billing"
)

const maxWebhookBody = 64 << 10

func (h *Handler) createCheckout(c *gin.Context) {
	if h.payments == nil || !h.payments.CheckoutEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Payments are not configured."})
		return
	}
	session, _ := auth.FromContext(c.Request.Context())

	url, err := h.payments.CreateCheckout(c.Request.Context(), session.Email)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", session.UserID).Error("create checkout")
		c.JSON(http.StatusBadGateway, gin.H{"message": "Could not start checkout."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) stripeWebhook(c *gin.Context) {
	if h.payments == nil {
		c.Status(http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err = h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, billing.ErrInvalidSignature) {
		c.Status(http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("stripe webhook")
	}
	c.Status(http.StatusOK)
}
