// Package validate normalises untrusted input before it reaches the services.
// Every function returns an error value for malformed input and never panics.
package validate

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"petsoft/internal/domain"
)

const (
	MaxNameLength     = 100
	MaxNotesLength    = 1000
	MaxAge            = 99999
	MaxEmailLength    = 100
	MaxPasswordLength = 100
)

// ErrInvalidPetID is returned for anything that is not a canonical pet id.
var ErrInvalidPetID = errors.New("invalid pet id")

// Error describes a single rejected field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type petForm struct {
	Name      string `validate:"required,max=100"`
	OwnerName string `validate:"required,max=100"`
	ImageURL  string `validate:"omitempty,http_url"`
	Age       int    `validate:"gt=0,lte=99999"`
	Notes     string `validate:"max=1000"`
}

type credentials struct {
	Email    string `validate:"required,email,max=100"`
	Password string `validate:"required,max=100"`
}

var fieldNames = map[string]string{
	"Name":      "name",
	"OwnerName": "ownerName",
	"ImageURL":  "imageUrl",
	"Age":       "age",
	"Notes":     "notes",
	"Email":     "email",
	"Password":  "password",
}

// PetID accepts only a canonical, lower-case hyphenated UUID string.
func PetID(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok || len(s) != 36 {
		return "", ErrInvalidPetID
	}
	id, err := uuid.Parse(s)
	if err != nil || id.String() != s {
		return "", ErrInvalidPetID
	}
	return s, nil
}

// PetForm normalises a pet payload. raw may be a domain.PetInput (or pointer),
// a decoded JSON object or form-encoded url.Values. An empty image URL is
// replaced by domain.DefaultPetImage.
func PetForm(raw any) (domain.PetInput, error) {
	in, err := extractPetInput(raw)
	if err != nil {
		return domain.PetInput{}, err
	}

	form := petForm{
		Name:      strings.TrimSpace(in.Name),
		OwnerName: strings.TrimSpace(in.OwnerName),
		ImageURL:  strings.TrimSpace(in.ImageURL),
		Age:       in.Age,
		Notes:     strings.TrimSpace(in.Notes),
	}
	if err := validate.Struct(form); err != nil {
		return domain.PetInput{}, translate(err)
	}

	if form.ImageURL == "" {
		form.ImageURL = domain.DefaultPetImage
	}

	return domain.PetInput{
		Name:      form.Name,
		OwnerName: form.OwnerName,
		ImageURL:  form.ImageURL,
		Age:       form.Age,
		Notes:     form.Notes,
	}, nil
}

// Credentials trims and lower-cases the email and checks both fields.
func Credentials(email, password string) (string, string, error) {
	c := credentials{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}
	if err := validate.Struct(c); err != nil {
		return "", "", translate(err)
	}
	return c.Email, c.Password, nil
}

func extractPetInput(raw any) (domain.PetInput, error) {
	switch v := raw.(type) {
	case domain.PetInput:
		return v, nil
	case *domain.PetInput:
		if v == nil {
			return domain.PetInput{}, &Error{Message: "pet data is required"}
		}
		return *v, nil
	case url.Values:
		age, err := coerceAge(v.Get("age"))
		if err != nil {
			return domain.PetInput{}, err
		}
		return domain.PetInput{
			Name:      v.Get("name"),
			OwnerName: v.Get("ownerName"),
			ImageURL:  v.Get("imageUrl"),
			Age:       age,
			Notes:     v.Get("notes"),
		}, nil
	case map[string]any:
		return fromMap(v)
	case nil:
		return domain.PetInput{}, &Error{Message: "pet data is required"}
	default:
		return domain.PetInput{}, &Error{Message: fmt.Sprintf("unsupported pet data %T", raw)}
	}
}

func fromMap(m map[string]any) (domain.PetInput, error) {
	var in domain.PetInput
	var err error

	if in.Name, err = stringField(m, "name"); err != nil {
		return in, err
	}
	if in.OwnerName, err = stringField(m, "ownerName"); err != nil {
		return in, err
	}
	if in.ImageURL, err = stringField(m, "imageUrl"); err != nil {
		return in, err
	}
	if in.Notes, err = stringField(m, "notes"); err != nil {
		return in, err
	}
	if in.Age, err = coerceAge(m["age"]); err != nil {
		return in, err
	}
	return in, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &Error{Field: key, Message: "must be a string"}
	}
	return s, nil
}

// coerceAge converts numbers and numeric strings to an integer age.
func coerceAge(v any) (int, error) {
	invalid := &Error{Field: "age", Message: "Age must be a whole number"}

	var f float64
	switch n := v.(type) {
	case nil:
		return 0, &Error{Field: "age", Message: "Age is required"}
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, invalid
		}
		return int(n), nil
	case float32:
		f = float64(n)
	case float64:
		f = n
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, &Error{Field: "age", Message: "Age must be greater than zero"}
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, invalid
		}
		f = parsed
	default:
		return 0, invalid
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, invalid
	}
	return int(f), nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Message: err.Error()}
	}

	fe := verrs[0]
	field := fieldNames[fe.StructField()]
	switch fe.Tag() {
	case "required":
		switch fe.StructField() {
		case "Name":
			return &Error{Field: field, Message: "Name is required"}
		case "OwnerName":
			return &Error{Field: field, Message: "Owner name is required"}
		}
		return &Error{Field: field, Message: "is required"}
	case "max":
		return &Error{Field: field, Message: fmt.Sprintf("Must be less than %s characters", fe.Param())}
	case "http_url":
		return &Error{Field: field, Message: "Image url must be a valid url"}
	case "email":
		return &Error{Field: field, Message: "Email must be a valid email address"}
	case "gt":
		return &Error{Field: field, Message: "Age must be greater than zero"}
	case "lte":
		return &Error{Field: field, Message: fmt.Sprintf("Age must be at most %d", MaxAge)}
	default:
		return &Error{Field: field, Message: fmt.Sprintf("failed %s check", fe.Tag())}
	}
}
