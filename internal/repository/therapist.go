package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/therapease/booking-server-go/internal/database"
	"github.com/therapease/booking-server-go/internal/model"
)

type TherapistRepository interface {
	FindByID(ctx context.Context, id string) (*model.Therapist, error)
	FindAll(ctx context.Context) ([]model.Therapist, error)
	Create(ctx context.Context, params model.CreateTherapistParams) (*model.Therapist, error)
	DeleteByID(ctx context.Context, id string) (*model.Therapist, error)
	WithTx(tx *sqlx.Tx) TherapistRepository
}

type therapistRepo struct {
	db database.DBTX
}

func NewTherapistRepository(db *sqlx.DB) TherapistRepository {
	return &therapistRepo{db: db}
}

func (r *therapistRepo) WithTx(tx *sqlx.Tx) TherapistRepository {
	return &therapistRepo{db: tx}
}

func (r *therapistRepo) FindByID(ctx context.Context, id string) (*model.Therapist, error) {
	var therapist model.Therapist
	err := r.db.GetContext(ctx, &therapist, `
		SELECT * FROM therapists WHERE id = $1
	`, id)
	return HandleNotFound(&therapist, err)
}

func (r *therapistRepo) FindAll(ctx context.Context) ([]model.Therapist, error) {
	therapists := []model.Therapist{}
	err := r.db.SelectContext(ctx, &therapists, `
		SELECT * FROM therapists ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	return therapists, nil
}

func (r *therapistRepo) Create(ctx context.Context, params model.CreateTherapistParams) (*model.Therapist, error) {
	var therapist model.Therapist
	err := r.db.GetContext(ctx, &therapist, `
		INSERT INTO therapists (name, email)
		VALUES ($1, $2)
		RETURNING *
	`, params.Name, params.Email)
	if err != nil {
		return nil, err
	}
	return &therapist, nil
}

func (r *therapistRepo) DeleteByID(ctx context.Context, id string) (*model.Therapist, error) {
	var therapist model.Therapist
	err := r.db.GetContext(ctx, &therapist, `
		DELETE FROM therapists WHERE id = $1 RETURNING *
	`, id)
	return HandleNotFound(&therapist, err)
}
