package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/therapease/booking-server-go/internal/database"
	"github.com/therapease/booking-server-go/internal/model"
)

type SeriesRepository interface {
	FindByID(ctx context.Context, id string) (*model.Series, error)
	FindAll(ctx context.Context) ([]model.Series, error)
	Create(ctx context.Context, params model.CreateSeriesParams) (*model.Series, error)
	DeleteByID(ctx context.Context, id string) (*model.Series, error)
	WithTx(tx *sqlx.Tx) SeriesRepository
}

type seriesRepo struct {
	db database.DBTX
}

func NewSeriesRepository(db *sqlx.DB) SeriesRepository {
	return &seriesRepo{db: db}
}

func (r *seriesRepo) WithTx(tx *sqlx.Tx) SeriesRepository {
	return &seriesRepo{db: tx}
}

func (r *seriesRepo) FindByID(ctx context.Context, id string) (*model.Series, error) {
	var series model.Series
	err := r.db.GetContext(ctx, &series, `
		SELECT * FROM series WHERE id = $1
	`, id)
	return HandleNotFound(&series, err)
}

func (r *seriesRepo) FindAll(ctx context.Context) ([]model.Series, error) {
	series := []model.Series{}
	err := r.db.SelectContext(ctx, &series, `
		SELECT * FROM series ORDER BY start_date ASC
	`)
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (r *seriesRepo) Create(ctx context.Context, params model.CreateSeriesParams) (*model.Series, error) {
	var series model.Series
	err := r.db.GetContext(ctx, &series, `
		INSERT INTO series (recurrence, start_date, end_date)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.Recurrence, params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}
	return &series, nil
}

func (r *seriesRepo) DeleteByID(ctx context.Context, id string) (*model.Series, error) {
	var series model.Series
	err := r.db.GetContext(ctx, &series, `
		DELETE FROM series WHERE id = $1 RETURNING *
	`, id)
	return HandleNotFound(&series, err)
}
