package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/models"
	"github.com/mkovardin/fleetwatch/internal/repository"
)

type OwnerRepo struct {
	DB DBTX
}

const createOwner = `-- name: CreateOwner
INSERT INTO owners (id, user_id, created_at, company_name, contact_name, contact_email, contact_phone, city_id)
VALUES ($1, $2, now(), $3, $4, $5, $6, $7)
RETURNING id, user_id, created_at, company_name, contact_name, contact_email, contact_phone, city_id, directory_group_id
`

func (r *OwnerRepo) CreateOwner(ctx context.Context, arg repository.CreateOwnerParams) (models.Owner, error) {
	rows, _ := r.DB.Query(ctx, createOwner,
		uuid.New(), arg.UserID, arg.CompanyName, arg.ContactName, arg.ContactEmail, arg.ContactPhone, arg.CityID)
	owner, err := pgx.CollectOneRow(rows, rowToOwner)
	if err != nil {
		return owner, fmt.Errorf("db error: %w", err)
	}
	return owner, nil
}

const getOwnerByUserID = `-- name: GetOwnerByUserID
SELECT id, user_id, created_at, company_name, contact_name, contact_email, contact_phone, city_id, directory_group_id
FROM owners
WHERE user_id = $1
`

func (r *OwnerRepo) GetOwnerByUserID(ctx context.Context, userID uuid.UUID) (models.Owner, error) {
	rows, _ := r.DB.Query(ctx, getOwnerByUserID, userID)
	owner, err := pgx.CollectOneRow(rows, rowToOwner)

	switch {
	case err == nil:
		return owner, nil
	case errors.Is(err, pgx.ErrNoRows):
		return owner, fmt.Errorf("repo error: %w", apperrors.ErrOwnerNotFound)
	default:
		return owner, fmt.Errorf("db error: %w", err)
	}
}

const getOwnerSummary = `-- name: GetOwnerSummary
SELECT o.id, o.company_name, o.contact_email, o.contact_phone, c.name, c.country
FROM owners o
LEFT JOIN cities c ON c.id = o.city_id
WHERE o.id = $1
`

func (r *OwnerRepo) GetOwnerSummary(ctx context.Context, ownerID uuid.UUID) (models.OwnerSummary, error) {
	rows, _ := r.DB.Query(ctx, getOwnerSummary, ownerID)
	summary, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.OwnerSummary, error) {
		var s models.OwnerSummary
		err := row.Scan(&s.ID, &s.CompanyName, &s.ContactEmail, &s.ContactPhone, &s.City, &s.Country)
		return s, err
	})

	switch {
	case err == nil:
		return summary, nil
	case errors.Is(err, pgx.ErrNoRows):
		return summary, fmt.Errorf("repo error: %w", apperrors.ErrOwnerNotFound)
	default:
		return summary, fmt.Errorf("db error: %w", err)
	}
}

const setDirectoryGroup = `-- name: SetDirectoryGroup
UPDATE owners
SET directory_group_id = $2
WHERE id = $1
`

func (r *OwnerRepo) SetDirectoryGroup(ctx context.Context, ownerID uuid.UUID, groupID string) error {
	tag, err := r.DB.Exec(ctx, setDirectoryGroup, ownerID, groupID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrOwnerNotFound)
	}
	return nil
}

func rowToOwner(row pgx.CollectableRow) (models.Owner, error) {
	var o models.Owner
	err := row.Scan(&o.ID, &o.UserID, &o.CreatedAt, &o.CompanyName, &o.ContactName,
		&o.ContactEmail, &o.ContactPhone, &o.CityID, &o.DirectoryGroupID)
	return o, err
}
