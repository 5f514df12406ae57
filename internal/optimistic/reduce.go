// Package optimistic keeps a client-side mirror of the pet list that applies
// mutations before the server confirms them.
package optimistic

import (
	"strings"

	"github.com/google/uuid"

	"petsoft/internal/domain"
)

// TempIDPrefix marks ids assigned locally to pets the server has not stored yet.
const TempIDPrefix = "temp-"

// Action is one of Add, Edit or Checkout.
type Action interface {
	action()
}

// Add appends Pet. An empty Pet.ID is replaced by a temporary id.
type Add struct {
	Pet domain.Pet
}

// Edit merges Input into the pet with the given ID.
type Edit struct {
	ID    string
	Input domain.PetInput
}

// Checkout removes the pet with the given ID.
type Checkout struct {
	ID string
}

func (Add) action()      {}
func (Edit) action()     {}
func (Checkout) action() {}

// NewTempID returns a fresh temporary pet id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was assigned locally.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Reduce returns the list that results from applying a to list. It never
// modifies list. Edits and checkouts of unknown ids leave the list as is.
func Reduce(list []domain.Pet, a Action) []domain.Pet {
	switch a := a.(type) {
	case Add:
		pet := a.Pet
		if pet.ID == "" {
			pet.ID = NewTempID()
		}
		out := make([]domain.Pet, 0, len(list)+1)
		out = append(out, list...)
		return append(out, pet)

	case Edit:
		out := make([]domain.Pet, len(list))
		copy(out, list)
		for i := range out {
			if out[i].ID == a.ID {
				a.Input.Apply(&out[i])
			}
		}
		return out

	case Checkout:
		out := make([]domain.Pet, 0, len(list))
		for _, p := range list {
			if p.ID != a.ID {
				out = append(out, p)
			}
		}
		return out

	default:
		out := make([]domain.Pet, len(list))
		copy(out, list)
		return out
	}
}
