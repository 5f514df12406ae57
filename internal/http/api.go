package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"petsoft/internal/auth"
	"petsoft/internal/domain"
	"petsoft/internal/service"
	"petsoft/internal/storage"
)

const sessionCookie = "petsoft_session"

// Sessions issues and verifies session tokens.
type Sessions interface {
	Issue(ctx context.Context, user *domain.User) (string, auth.Session, error)
	Parse(ctx context.Context, token string) (auth.Session, error)
	Revoke(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// Payments sells access and receives payment confirmations.
type Payments interface {
	CheckoutEnabled() bool
	CreateCheckout(ctx context.Context, email string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Options configures a Handler. Images and Payments may be nil when the
// corresponding integration is not configured.
type Options struct {
	Users    service.UserService
	Pets     service.PetService
	Sessions Sessions
	Payments Payments
	Images   storage.ImageStore
	Logger   *logrus.Logger

	// AccessRequired gates the pet routes behind a completed payment.
	AccessRequired bool
	CookieSecure   bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users          service.UserService
	pets           service.PetService
	sessions       Sessions
	payments       Payments
	images         storage.ImageStore
	logger         *logrus.Logger
	accessRequired bool
	cookieSecure   bool
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:          opts.Users,
		pets:           opts.Pets,
		sessions:       opts.Sessions,
		payments:       opts.Payments,
		images:         opts.Images,
		logger:         logger,
		accessRequired: opts.AccessRequired,
		cookieSecure:   opts.CookieSecure,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), h.loadSession())

	router.POST("/signup", h.signUp)
	router.POST("/login", h.logIn)
	router.POST("/logout", h.logOut)

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/stripe/webhook", h.stripeWebhook)

		authed := api.Group("", h.requireSession())
		authed.GET("/me", h.me)
		authed.POST("/payment/checkout", h.createCheckout)

		pets := authed.Group("", h.requireAccess())
		pets.GET("/pets", h.listPets)
		pets.GET("/pets/:id", h.getPet)
		pets.POST("/pets", h.addPet)
		pets.PUT("/pets/:id", h.editPet)
		pets.DELETE("/pets/:id", h.checkoutPet)
		pets.POST("/images", h.uploadImage)
	}
}

// PetResponse is the wire shape of a pet.
type PetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"ownerName"`
	ImageURL  string    `json:"imageUrl"`
	Age       int       `json:"age"`
	Notes     string    `json:"notes"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func petToResponse(p domain.Pet) PetResponse {
	return PetResponse{
		ID:        p.ID,
		Name:      p.Name,
		OwnerName: p.OwnerName,
		ImageURL:  p.ImageURL,
		Age:       p.Age,
		Notes:     p.Notes,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// UserResponse is the wire shape of the signed-in user.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	HasAccess bool      `json:"hasAccess"`
	CreatedAt time.Time `json:"createdAt"`
}

func userToResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		HasAccess: u.HasAccess,
		CreatedAt: u.CreatedAt,
	}
}
