// Package billing sells access through Stripe Checkout and applies the
// payment confirmations Stripe posts back.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const eventCheckoutCompleted stripe.EventType = "checkout.session.completed"

var (
	// ErrNotConfigured is returned by CreateCheckout when no Stripe key or price is set.
	ErrNotConfigured = errors.New("billing is not configured")
	// ErrInvalidSignature is returned for webhook payloads that fail verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// AccessGranter flips the paid flag of a user.
type AccessGranter interface {
	GrantAccess(ctx context.Context, email string) error
}

// Config holds the Stripe settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	// BaseURL is the public origin used for the success and cancel pages.
	BaseURL string
}

type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Service struct {
	cfg      Config
	access   AccessGranter
	sessions checkoutSessions
	logger   *logrus.Logger
}

func NewService(cfg Config, access AccessGranter, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Service{
		cfg:    cfg,
		access: access,
		logger: logger,
	}
	if cfg.SecretKey != "" {
		sc := &client.API{}
		sc.Init(cfg.SecretKey, nil)
		s.sessions = sc.CheckoutSessions
	}
	return s
}

// CheckoutEnabled reports whether CreateCheckout can reach Stripe.
func (s *Service) CheckoutEnabled() bool {
	return s.sessions != nil && s.cfg.PriceID != ""
}

// CreateCheckout opens a hosted checkout for a one-off access purchase and
// returns the URL to send the customer to.
func (s *Service) CreateCheckout(ctx context.Context, email string) (string, error) {
	if !s.CheckoutEnabled() {
		return "", ErrNotConfigured
	}

	base := strings.TrimRight(s.cfg.BaseURL, "/")
	params := &stripe.CheckoutSessionParams{
		CustomerEmail: stripe.String(email),
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(base + "/payment?success=true"),
		CancelURL:  stripe.String(base + "/payment?cancelled=true"),
	}
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"email": email, "session": cs.ID}).Info("checkout session created")
	return cs.URL, nil
}

// HandleWebhook verifies and applies a Stripe event. Only a bad signature is
// reported; everything after verification is logged so Stripe is not made
// to retry.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	// an empty secret would accept events signed with an empty key
	if s.cfg.WebhookSecret == "" {
		s.logger.Warn("webhook received but no webhook secret is configured")
		return ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.WithError(err).Warn("webhook verification failed")
		return ErrInvalidSignature
	}

	log := s.logger.WithFields(logrus.Fields{"event": event.ID, "type": event.Type})

	switch event.Type {
	case eventCheckoutCompleted:
		email, err := customerEmail(event)
		if err != nil {
			log.WithError(err).Error("decode checkout session")
			return nil
		}
		if err := s.access.GrantAccess(ctx, email); err != nil {
			log.WithError(err).Error("grant access after payment")
			return nil
		}
		log.WithField("email", email).Info("payment completed")
	default:
		log.Info("unhandled webhook event")
	}
	return nil
}

func customerEmail(event stripe.Event) (string, error) {
	if event.Data == nil {
		return "", errors.New("event has no data")
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return "", err
	}
	if cs.CustomerEmail != "" {
		return cs.CustomerEmail, nil
	}
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		return cs.CustomerDetails.Email, nil
	}
	return "", errors.New("checkout session has no customer email")
}
