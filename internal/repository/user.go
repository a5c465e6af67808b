package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/therapease/booking-server-go/internal/database"
	"github.com/therapease/booking-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	// SetVerificationCode stores a fresh code and its expiry.
	SetVerificationCode(ctx context.Context, id string, code int, expiresAt time.Time) (*model.User, error)
	MarkVerified(ctx context.Context, id string) (*model.User, error)
	DeleteByID(ctx context.Context, id string) (*model.User, error)
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db database.DBTX
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE email = $1
	`, email)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (name, surname, email, password_hash, verification_code, code_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.Name, params.Surname, params.Email, params.PasswordHash,
		params.VerificationCode, params.CodeExpiresAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) SetVerificationCode(ctx context.Context, id string, code int, expiresAt time.Time) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			verification_code = $2,
			code_expires_at = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING *
	`, id, code, expiresAt)
	return HandleNotFound(&user, err)
}

func (r *userRepo) MarkVerified(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			verified = TRUE,
			verification_code = NULL,
			code_expires_at = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING *
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) DeleteByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		DELETE FROM users WHERE id = $1 RETURNING *
	`, id)
	return HandleNotFound(&user, err)
}
