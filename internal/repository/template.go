package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/therapease/booking-server-go/internal/database"
	"github.com/therapease/booking-server-go/internal/model"
)

type TemplateRepository interface {
	FindByID(ctx context.Context, id string) (*model.Template, error)
	FindAll(ctx context.Context) ([]model.Template, error)
	Create(ctx context.Context, params model.CreateTemplateParams) (*model.Template, error)
	Update(ctx context.Context, id string, params model.UpdateTemplateParams) (*model.Template, error)
	DeleteByID(ctx context.Context, id string) (*model.Template, error)
	WithTx(tx *sqlx.Tx) TemplateRepository
}

type templateRepo struct {
	db database.DBTX
}

func NewTemplateRepository(db *sqlx.DB) TemplateRepository {
	return &templateRepo{db: db}
}

func (r *templateRepo) WithTx(tx *sqlx.Tx) TemplateRepository {
	return &templateRepo{db: tx}
}

func (r *templateRepo) FindByID(ctx context.Context, id string) (*model.Template, error) {
	var template model.Template
	err := r.db.GetContext(ctx, &template, `
		SELECT * FROM templates WHERE id = $1
	`, id)
	return HandleNotFound(&template, err)
}

func (r *templateRepo) FindAll(ctx context.Context) ([]model.Template, error) {
	templates := []model.Template{}
	err := r.db.SelectContext(ctx, &templates, `
		SELECT * FROM templates ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepo) Create(ctx context.Context, params model.CreateTemplateParams) (*model.Template, error) {
	var template model.Template
	err := r.db.GetContext(ctx, &template, `
		INSERT INTO templates (therapist_id, duration_minutes, vacancies, start_times)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.TherapistID, params.DurationInMinutes, params.Vacancies, pq.StringArray(params.StartTimes))
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepo) Update(ctx context.Context, id string, params model.UpdateTemplateParams) (*model.Template, error) {
	var template model.Template
	err := r.db.GetContext(ctx, &template, `
		UPDATE templates SET
			duration_minutes = COALESCE($2, duration_minutes),
			vacancies = COALESCE($3, vacancies),
			start_times = COALESCE($4, start_times),
			updated_at = now()
		WHERE id = $1
		RETURNING *
	`, id, params.DurationInMinutes, params.Vacancies, startTimesOrNil(params.StartTimes))
	return HandleNotFound(&template, err)
}

func startTimesOrNil(times []string) interface{} {
	if times == nil {
		return nil
	}
	return pq.StringArray(times)
}

func (r *templateRepo) DeleteByID(ctx context.Context, id string) (*model.Template, error) {
	var template model.Template
	err := r.db.GetContext(ctx, &template, `
		DELETE FROM templates WHERE id = $1 RETURNING *
	`, id)
	return HandleNotFound(&template, err)
}
