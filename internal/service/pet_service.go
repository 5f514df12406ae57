package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"petsoft/internal/auth"
	"petsoft/internal/cache"
	"petsoft/internal/domain"
	"petsoft/internal/repository"
	"petsoft/internal/validate"
)

// PetService holds the pet mutation actions and the owner-scoped reads.
//
// Every method requires a session in ctx and returns auth.ErrUnauthenticated
// without one. Expected failures are *ActionError values; success is nil.
type PetService interface {
	AddPet(ctx context.Context, raw any) error
	EditPet(ctx context.Context, rawID, raw any) error
	CheckoutPet(ctx context.Context, rawID any) error
	ListPets(ctx context.Context) ([]domain.Pet, error)
	GetPet(ctx context.Context, rawID any) (*domain.Pet, error)
}

// PetConfig tunes a PetService.
type PetConfig struct {
	// Delay is slept before every mutation to simulate network latency.
	Delay  time.Duration
	Logger *logrus.Logger
}

type petService struct {
	pets   repository.PetRepository
	lists  *cache.PetLists
	logger *logrus.Logger
	delay  time.Duration
	newID  func() string
}

func NewPetService(pets repository.PetRepository, lists *cache.PetLists, cfg PetConfig) PetService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &petService{
		pets:   pets,
		lists:  lists,
		logger: cfg.Logger,
		delay:  cfg.Delay,
		newID:  uuid.NewString,
	}
}

func (s *petService) AddPet(ctx context.Context, raw any) error {
	if err := s.pause(ctx); err != nil {
		return err
	}
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	input, err := validate.PetForm(raw)
	if err != nil {
		return actionErr(KindInvalid, MsgInvalidPetData, err)
	}

	// the owner always comes from the session, never from the payload
	pet := &domain.Pet{ID: s.newID(), OwnerID: session.UserID}
	input.Apply(pet)

	if err := s.pets.Create(ctx, pet); err != nil {
		s.logFor(session).WithError(err).Error("add pet")
		return actionErr(KindPersistence, MsgCouldNotAdd, err)
	}

	s.revalidate(ctx, session)
	return nil
}

func (s *petService) EditPet(ctx context.Context, rawID, raw any) error {
	if err := s.pause(ctx); err != nil {
		return err
	}
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	id, idErr := validate.PetID(rawID)
	input, formErr := validate.PetForm(raw)
	if err := errors.Join(idErr, formErr); err != nil {
		return actionErr(KindInvalid, MsgInvalidPetData, err)
	}

	pet, err := s.ownedPet(ctx, session, id, MsgCouldNotEdit)
	if err != nil {
		return err
	}

	input.Apply(pet)
	if err := s.pets.Update(ctx, pet); err != nil {
		s.logFor(session).WithError(err).WithField("pet_id", id).Error("edit pet")
		return actionErr(KindPersistence, MsgCouldNotEdit, err)
	}

	s.revalidate(ctx, session)
	return nil
}

func (s *petService) CheckoutPet(ctx context.Context, rawID any) error {
	if err := s.pause(ctx); err != nil {
		return err
	}
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	id, err := validate.PetID(rawID)
	if err != nil {
		return actionErr(KindInvalid, MsgInvalidPetData, err)
	}

	if _, err := s.ownedPet(ctx, session, id, MsgCouldNotDelete); err != nil {
		return err
	}

	if err := s.pets.Delete(ctx, id); err != nil {
		s.logFor(session).WithError(err).WithField("pet_id", id).Error("checkout pet")
		return actionErr(KindPersistence, MsgCouldNotDelete, err)
	}

	s.revalidate(ctx, session)
	return nil
}

func (s *petService) ListPets(ctx context.Context) ([]domain.Pet, error) {
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}

	if pets, ok, err := s.lists.Get(ctx, session.UserID); err != nil {
		s.logFor(session).WithError(err).Warn("read pet list cache")
	} else if ok {
		return nonNil(pets), nil
	}

	gen, genErr := s.lists.Generation(ctx, session.UserID)
	if genErr != nil {
		s.logFor(session).WithError(genErr).Warn("read pet list generation")
	}

	pets, err := s.pets.ListByOwner(ctx, session.UserID)
	if err != nil {
		s.logFor(session).WithError(err).Error("list pets")
		return nil, actionErr(KindPersistence, MsgCouldNotLoad, err)
	}
	pets = nonNil(pets)

	if genErr == nil {
		if err := s.lists.Set(ctx, session.UserID, gen, pets); err != nil {
			s.logFor(session).WithError(err).Warn("fill pet list cache")
		}
	}
	return pets, nil
}

func (s *petService) GetPet(ctx context.Context, rawID any) (*domain.Pet, error) {
	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	id, err := validate.PetID(rawID)
	if err != nil {
		return nil, actionErr(KindInvalid, MsgInvalidPetData, err)
	}
	return s.ownedPet(ctx, session, id, MsgCouldNotLoad)
}

// ownedPet loads a pet and checks that the session user owns it. The check
// runs on every call because client state cannot be trusted.
func (s *petService) ownedPet(ctx context.Context, session auth.Session, id, failMsg string) (*domain.Pet, error) {
	pet, err := s.pets.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, actionErr(KindNotFound, MsgPetNotFound, err)
		}
		s.logFor(session).WithError(err).WithField("pet_id", id).Error("load pet")
		return nil, actionErr(KindPersistence, failMsg, err)
	}
	if pet.OwnerID != session.UserID {
		s.logFor(session).WithField("pet_id", id).Warn("pet owned by another user")
		return nil, actionErr(KindForbidden, MsgNotAuthorized, nil)
	}
	return pet, nil
}

func (s *petService) revalidate(ctx context.Context, session auth.Session) {
	if err := s.lists.Invalidate(ctx, session.UserID); err != nil {
		s.logFor(session).WithError(err).Warn("invalidate pet list cache")
	}
}

func (s *petService) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *petService) logFor(session auth.Session) *logrus.Entry {
	return s.logger.WithField("user_id", session.UserID)
}

func nonNil(pets []domain.Pet) []domain.Pet {
	if pets == nil {
		return []domain.Pet{}
	}
	return pets
}
