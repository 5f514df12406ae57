// Package client talks to the PetSoft HTTP API and keeps an optimistic copy
// of the signed-in user's pets.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"petsoft/internal/domain"
	"petsoft/internal/optimistic"
)

const DefaultTimeout = 10 * time.Second

var (
	// ErrUnauthenticated means the server sent the client to the login page.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrPaymentRequired means the account has not paid for access yet.
	ErrPaymentRequired = errors.New("payment required")
)

// APIError is a non-2xx answer carrying the server's display message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("petsoft: status %d", e.StatusCode)
	}
	return e.Message
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *logrus.Logger
	// OnWarning receives the message of every mutation the server rejected.
	OnWarning func(msg string)
}

// Client is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	store   *optimistic.Store
	logger  *logrus.Logger
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	var storeOpts []optimistic.Option
	if cfg.OnWarning != nil {
		storeOpts = append(storeOpts, optimistic.OnWarning(cfg.OnWarning))
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
			Jar:       jar,
			// redirects are answers here, not something to follow
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: base,
		store:   optimistic.NewStore(nil, storeOpts...),
		logger:  logger,
	}, nil
}

// Store exposes the optimistic pet list.
func (c *Client) Store() *optimistic.Store {
	return c.store
}

func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.credentials(ctx, "/signup", email, password)
}

func (c *Client) LogIn(ctx context.Context, email, password string) error {
	return c.credentials(ctx, "/login", email, password)
}

func (c *Client) LogOut(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	if err != nil {
		return err
	}
	c.store.Revalidate(nil)
	return nil
}

// Refresh loads the server's pet list into the store.
func (c *Client) Refresh(ctx context.Context) error {
	var pets []petPayload
	if _, err := c.do(ctx, http.MethodGet, "/api/pets", nil, &pets); err != nil {
		return err
	}
	list := make([]domain.Pet, len(pets))
	for i, p := range pets {
		list[i] = p.toDomain()
	}
	c.store.Revalidate(list)
	return nil
}

// AddPet shows the pet immediately and then asks the server to store it.
func (c *Client) AddPet(ctx context.Context, in domain.PetInput) error {
	pet := domain.Pet{}
	in.Apply(&pet)
	if pet.ImageURL == "" {
		pet.ImageURL = domain.DefaultPetImage
	}
	ticket := c.store.Apply(optimistic.Add{Pet: pet})
	_, err := c.do(ctx, http.MethodPost, "/api/pets", in, nil)
	return c.settle(ctx, ticket, err)
}

func (c *Client) EditPet(ctx context.Context, id string, in domain.PetInput) error {
	ticket := c.store.Apply(optimistic.Edit{ID: id, Input: in})
	_, err := c.do(ctx, http.MethodPut, "/api/pets/"+url.PathEscape(id), in, nil)
	return c.settle(ctx, ticket, err)
}

func (c *Client) CheckoutPet(ctx context.Context, id string) error {
	ticket := c.store.Apply(optimistic.Checkout{ID: id})
	_, err := c.do(ctx, http.MethodDelete, "/api/pets/"+url.PathEscape(id), nil, nil)
	return c.settle(ctx, ticket, err)
}

// settle resolves the optimistic action and, on success, revalidates so
// temporary ids are replaced by the stored ones.
func (c *Client) settle(ctx context.Context, ticket optimistic.Ticket, err error) error {
	c.store.Resolve(ticket, err)
	if err != nil {
		return err
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.WithError(err).Warn("revalidate pets")
	}
	return nil
}

func (c *Client) credentials(ctx context.Context, path, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	status, err := c.do(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusSeeOther {
		return &APIError{StatusCode: status}
	}
	return nil
}

// do sends a JSON request and decodes a JSON answer into out. Redirects to
// the login or payment pages become ErrUnauthenticated and ErrPaymentRequired.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusUnauthorized && path != "/login":
		return resp.StatusCode, ErrUnauthenticated
	case resp.StatusCode == http.StatusPaymentRequired:
		return resp.StatusCode, ErrPaymentRequired
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		switch resp.Header.Get("Location") {
		case "/login":
			return resp.StatusCode, ErrUnauthenticated
		case "/payment":
			if strings.HasPrefix(path, "/api/") {
				return resp.StatusCode, ErrPaymentRequired
			}
		}
		return resp.StatusCode, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &msg)
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type petPayload struct {
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

func (p petPayload) toDomain() domain.Pet {
	return domain.Pet{
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
