package optimistic

import (
	"strings"
	"sync"

	"petsoft/internal/domain"
)

// Ticket identifies an applied action until it is resolved.
type Ticket uint64

type pending struct {
	ticket   Ticket
	action   Action
	resolved bool
}

// Store is the client-side pet list. Pets() is always the last server list
// with every pending action folded over it.
//
// A failed action is rolled back and reported through the warning handler.
// A successful one stays applied until Revalidate installs a fresh server
// list. Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	base     []domain.Pet
	pending  []pending
	next     Ticket
	selected string

	onWarning func(msg string)
}

// Option customises a Store.
type Option func(*Store)

// OnWarning registers fn to receive the message of every rejected action.
func OnWarning(fn func(msg string)) Option {
	return func(s *Store) {
		s.onWarning = fn
	}
}

func NewStore(initial []domain.Pet, opts ...Option) *Store {
	s := &Store{base: clonePets(initial)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply makes a visible immediately and returns the ticket to resolve it
// with. Adding a pet selects it; checking out the selected pet clears the
// selection.
func (s *Store) Apply(a Action) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	// fix the temporary id now so every later fold yields the same list
	switch act := a.(type) {
	case Add:
		if act.Pet.ID == "" {
			act.Pet.ID = NewTempID()
		}
		a = act
		s.selected = act.Pet.ID
	case Checkout:
		if s.selected == act.ID {
			s.selected = ""
		}
	}

	s.next++
	s.pending = append(s.pending, pending{ticket: s.next, action: a})
	return s.next
}

// Resolve records the server's answer for t. A nil err keeps the change; any
// other error removes it and emits err's message as a warning. Unknown
// tickets are ignored.
func (s *Store) Resolve(t Ticket, err error) {
	s.mu.Lock()
	idx := s.indexOf(t)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	if err == nil {
		s.pending[idx].resolved = true
		s.mu.Unlock()
		return
	}

	dropped := s.pending[idx].action
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	if add, ok := dropped.(Add); ok && s.selected == add.Pet.ID {
		s.selected = ""
	}
	warn := s.onWarning
	s.mu.Unlock()

	if warn != nil {
		warn(err.Error())
	}
}

// Revalidate replaces the server list. Resolved actions are discarded since
// fresh already reflects them; in-flight ones stay on top.
func (s *Store) Revalidate(fresh []domain.Pet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.base = clonePets(fresh)
	kept := s.pending[:0]
	for _, p := range s.pending {
		if !p.resolved {
			kept = append(kept, p)
		}
	}
	s.pending = kept

	if s.selected != "" && !containsID(s.foldLocked(), s.selected) {
		s.selected = ""
	}
}

// Pets returns a copy of the current list.
func (s *Store) Pets() []domain.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foldLocked()
}

// Pending reports how many actions await a server answer or revalidation.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Store) Count() int {
	return len(s.Pets())
}

func (s *Store) Select(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
}

func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected returns the selected pet, if it is still in the list.
func (s *Store) Selected() (domain.Pet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return domain.Pet{}, false
	}
	for _, p := range s.foldLocked() {
		if p.ID == s.selected {
			return p, true
		}
	}
	return domain.Pet{}, false
}

// Filter returns the pets whose name contains query, ignoring case.
func (s *Store) Filter(query string) []domain.Pet {
	pets := s.Pets()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return pets
	}
	out := make([]domain.Pet, 0, len(pets))
	for _, p := range pets {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) foldLocked() []domain.Pet {
	list := clonePets(s.base)
	for _, p := range s.pending {
		list = Reduce(list, p.action)
	}
	return list
}

func (s *Store) indexOf(t Ticket) int {
	for i, p := range s.pending {
		if p.ticket == t {
			return i
		}
	}
	return -1
}

func containsID(list []domain.Pet, id string) bool {
	for _, p := range list {
		if p.ID == id {
			return true
		}
	}
	return false
}

func clonePets(list []domain.Pet) []domain.Pet {
	out := make([]domain.Pet, len(list))
	copy(out, list)
	return out
}
