package sqlite

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
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	owner_name TEXT NOT NULL,
	image_url TEXT NOT NULL,
	age INTEGER NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	owner_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_pets_owner_id ON pets(owner_id);
`

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
	return nil
}

func (r *PetRepository) Create(ctx context.Context, pet *domain.Pet) error {
	now := time.Now().UTC()
	pet.CreatedAt = now
	pet.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO pets (id, name, owner_name, image_url, age, notes, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
SET name=?, owner_name=?, image_url=?, age=?, notes=?, updated_at=?
WHERE id=?`,
		pet.Name,
		pet.OwnerName,
		pet.ImageURL,
		pet.Age,
		pet.Notes,
		pet.UpdatedAt,
		pet.ID,
	)
	if err != nil {
		return fmt.Errorf("update pet: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pet update rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pet delete rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PetRepository) Get(ctx context.Context, id string) (*domain.Pet, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, owner_name, image_url, age, notes, owner_id, created_at, updated_at
FROM pets
WHERE id=?`,
		id,
	)
	return scanPet(row)
}

func (r *PetRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Pet, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, owner_name, image_url, age, notes, owner_id, created_at, updated_at
FROM pets
WHERE owner_id=?
ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query pets: %w", err)
	}
	defer rows.Close()

	pets := []domain.Pet{}
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		pets = append(pets, *pet)
	}

	return pets, rows.Err()
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
