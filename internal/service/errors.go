package service

// Messages returned to callers. They are meant for direct display.
const (
	MsgInvalidPetData     = "Invalid pet data."
	MsgPetNotFound        = "pet not found"
	MsgNotAuthorized      = "Not authorized"
	MsgCouldNotAdd        = "Could not add pet."
	MsgCouldNotEdit       = "Could not edit pet."
	MsgCouldNotDelete     = "Could not delete pet."
	MsgCouldNotLoad       = "Could not load pets."
	MsgInvalidForm        = "Invalid form data."
	MsgEmailExists        = "Email already exists."
	MsgCouldNotSignUp     = "Could not create user."
	MsgInvalidCredentials = "Invalid credentials."
)

// Kind classifies an ActionError for transports that need a status code.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// ActionError is the expected failure of an action. Message is safe to show
// to the user; Err keeps the underlying cause for logging and errors.Is.
type ActionError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func actionErr(kind Kind, msg string, cause error) *ActionError {
	return &ActionError{Kind: kind, Message: msg, Err: cause}
}
