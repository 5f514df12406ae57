package optimistic

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsoft/internal/domain"
)

func seed() []domain.Pet {
	return []domain.Pet{
		{ID: "a", Name: "Rex", OwnerName: "Alice", Age: 3, OwnerID: "u1"},
		{ID: "b", Name: "Milo", OwnerName: "Bob", Age: 1, OwnerID: "u1"},
	}
}

func TestReduceAdd(t *testing.T) {
	list := seed()
	out := Reduce(list, Add{Pet: domain.Pet{Name: "Luna", Age: 2}})

	require.Len(t, out, 3)
	assert.Len(t, list, 2)
	assert.Equal(t, "Luna", out[2].Name)
	assert.True(t, IsTempID(out[2].ID))

	kept := Reduce(list, Add{Pet: domain.Pet{ID: "c", Name: "Luna"}})
	assert.Equal(t, "c", kept[2].ID)
}

func TestReduceEdit(t *testing.T) {
	list := seed()
	out := Reduce(list, Edit{ID: "a", Input: domain.PetInput{Name: "Rexy", OwnerName: "Alice", Age: 4, Notes: "n"}})

	assert.Equal(t, "Rexy", out[0].Name)
	assert.Equal(t, 4, out[0].Age)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "u1", out[0].OwnerID)
	assert.Equal(t, "Rex", list[0].Name, "input must not be mutated")
	assert.Equal(t, list[1], out[1])
}

func TestReduceCheckout(t *testing.T) {
	list := seed()
	out := Reduce(list, Checkout{ID: "a"})

	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
	assert.Len(t, list, 2)
}

func TestReduceUnknownIDIsNoop(t *testing.T) {
	list := seed()
	assert.Equal(t, list, Reduce(list, Edit{ID: "zz", Input: domain.PetInput{Name: "x"}}))
	assert.Equal(t, list, Reduce(list, Checkout{ID: "zz"}))
}

func TestStoreSuccessStaysUntilRevalidate(t *testing.T) {
	s := NewStore(seed())

	ticket := s.Apply(Checkout{ID: "a"})
	assert.Equal(t, 1, s.Count())

	s.Resolve(ticket, nil)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, s.Pending())

	s.Revalidate([]domain.Pet{seed()[1]})
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, []domain.Pet{seed()[1]}, s.Pets())
}

func TestStoreRollsBackOnError(t *testing.T) {
	var warnings []string
	s := NewStore(seed(), OnWarning(func(msg string) { warnings = append(warnings, msg) }))

	ticket := s.Apply(Edit{ID: "a", Input: domain.PetInput{Name: "Stolen", OwnerName: "x", Age: 1}})
	assert.Equal(t, "Stolen", s.Pets()[0].Name)

	s.Resolve(ticket, errors.New("Not authorized"))
	assert.Equal(t, "Rex", s.Pets()[0].Name)
	assert.Equal(t, []string{"Not authorized"}, warnings)
	assert.Equal(t, 0, s.Pending())
}

func TestStoreRollbackKeepsLaterActions(t *testing.T) {
	s := NewStore(seed(), OnWarning(func(string) {}))

	first := s.Apply(Checkout{ID: "a"})
	s.Apply(Edit{ID: "b", Input: domain.PetInput{Name: "Max", OwnerName: "Bob", Age: 1}})

	s.Resolve(first, errors.New("Could not delete pet."))
	pets := s.Pets()
	require.Len(t, pets, 2)
	assert.Equal(t, "Rex", pets[0].Name)
	assert.Equal(t, "Max", pets[1].Name)
}

func TestStoreInFlightSurvivesRevalidate(t *testing.T) {
	s := NewStore(seed())
	s.Apply(Add{Pet: domain.Pet{Name: "Luna"}})

	s.Revalidate(seed())
	assert.Equal(t, 3, s.Count())
	assert.Equal(t, 1, s.Pending())
}

func TestStoreSelection(t *testing.T) {
	s := NewStore(seed(), OnWarning(func(string) {}))

	s.Select("b")
	p, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "Milo", p.Name)

	s.Apply(Checkout{ID: "b"})
	assert.Empty(t, s.SelectedID())

	ticket := s.Apply(Add{Pet: domain.Pet{Name: "Luna"}})
	assert.True(t, IsTempID(s.SelectedID()))
	added, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "Luna", added.Name)

	s.Resolve(ticket, errors.New("Could not add pet."))
	assert.Empty(t, s.SelectedID())
}

func TestStoreTempIDIsStable(t *testing.T) {
	s := NewStore(nil)
	s.Apply(Add{Pet: domain.Pet{Name: "Luna"}})
	assert.Equal(t, s.Pets()[0].ID, s.Pets()[0].ID)
}

func TestStoreFilter(t *testing.T) {
	s := NewStore(seed())
	assert.Len(t, s.Filter(""), 2)
	got := s.Filter("  MI ")
	require.Len(t, got, 1)
	assert.Equal(t, "Milo", got[0].Name)
	assert.Empty(t, s.Filter("zzz"))
}

func TestStoreUnknownTicket(t *testing.T) {
	called := false
	s := NewStore(seed(), OnWarning(func(string) { called = true }))
	s.Resolve(Ticket(42), errors.New("boom"))
	assert.False(t, called)
	assert.Equal(t, 2, s.Count())
}

func TestStoreConcurrentUse(t *testing.T) {
	s := NewStore(nil, OnWarning(func(string) {}))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket := s.Apply(Add{Pet: domain.Pet{Name: "p"}})
			if i%2 == 0 {
				s.Resolve(ticket, nil)
			} else {
				s.Resolve(ticket, errors.New("fail"))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, s.Count())
}
