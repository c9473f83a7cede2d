package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkovardin/fleetwatch/internal/apperrors"
	"github.com/mkovardin/fleetwatch/internal/models"
)

type CityRepo struct {
	DB DBTX
}

const getCity = `-- name: GetCity
SELECT id, name, country
FROM cities
WHERE id = $1
`

func (r *CityRepo) GetCity(ctx context.Context, cityID uuid.UUID) (models.City, error) {
	rows, _ := r.DB.Query(ctx, getCity, cityID)
	city, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.City, error) {
		var c models.City
		err := row.Scan(&c.ID, &c.Name, &c.Country)
		return c, err
	})

	switch {
	case err == nil:
		return city, nil
	case errors.Is(err, pgx.ErrNoRows):
		return city, fmt.Errorf("repo error: %w", apperrors.ErrCityNotFound)
	default:
		return city, fmt.Errorf("db error: %w", err)
	}
}
