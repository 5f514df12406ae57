package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"petsoft/internal/domain"
	"petsoft/internal/repository"
)

const createPetsTable = `
CREATE TABLE IF NOT EXISTS pets (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	owner_name TEXT NOT NULL,
	image_url TEXT NOT NULL,
	age INTEGER NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const createPetsOwnerIndex = `CREATE INDEX IF NOT EXISTS idx_pets_owner_id ON pets(owner_id)`

const petColumns = `id, name, owner_name, image_url, age, notes, owner_id, created_at, updated_at`

type PetRepository struct {
	db *sql.DB
}

func NewPetRepository(db *sql.DB) repository.PetRepository {
	return &PetRepository{db: db}
}

func (r *PetRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPetsTable); err != nil {
		return fmt.Errorf("create pets table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createPetsOwnerIndex); err != nil {
		return fmt.Errorf("create pets owner index: %w", err)
	}
	return nil
}

func (r *PetRepository) Create(ctx context.Context, pet *domain.Pet) error {
	now := time.Now().UTC()
	pet.CreatedAt = now
	pet.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pets (`+petColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		pet.ID,
		pet.Name,
		pet.OwnerName,
		pet.ImageURL,
		pet.Age,
		pet.Notes,
		pet.OwnerID,
		pet.CreatedAt,
		pet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert pet %s: %w", pet.ID, repository.ErrDuplicate)
		}
		return fmt.Errorf("insert pet: %w", err)
	}
	return nil
}

func (r *PetRepository) Update(ctx context.Context, pet *domain.Pet) error {
	pet.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE pets
		SET
			name = $2,
			owner_name = $3,
			image_url = $4,
			age = $5,
			notes = $6,
			updated_at = $7
		WHERE id = $1
	`,
		pet.ID,
		pet.Name,
		pet.OwnerName,
		pet.ImageURL,
		pet.Age,
		pet.Notes,
		pet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update pet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pet update rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pet delete rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PetRepository) Get(ctx context.Context, id string) (*domain.Pet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id)
	return scanPet(row)
}

func (r *PetRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Pet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+petColumns+`
		FROM pets
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query pets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Pet, 0)
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pet)
	}
	return out, rows.Err()
}

func scanPet(scanner interface {
	Scan(dest ...any) error
}) (*domain.Pet, error) {
	var pet domain.Pet
	if err := scanner.Scan(
		&pet.ID,
		&pet.Name,
		&pet.OwnerName,
		&pet.ImageURL,
		&pet.Age,
		&pet.Notes,
		&pet.OwnerID,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan pet: %w", err)
	}
	return &pet, nil
}
