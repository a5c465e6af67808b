package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/therapease/booking-server-go/internal/database"
	"github.com/therapease/booking-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindMany returns sessions matching the filter, ordered by date ascending.
	FindMany(ctx context.Context, filter model.SessionFilter) ([]model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	CreateMany(ctx context.Context, params []model.CreateSessionParams) ([]model.Session, error)
	// ClaimAvailable atomically books the session for a user: the update only
	// applies while the session is still available and unclaimed. A nil result
	// with nil error means the claim lost (session gone or no longer available).
	ClaimAvailable(ctx context.Context, id string, booking model.BookingUpdate) (*model.Session, error)
	// Confirm moves a pending or still-available session to confirmed.
	Confirm(ctx context.Context, id string) (*model.Session, error)
	// Release reopens a booked session: clears user and tokens, back to available.
	Release(ctx context.Context, id string) (*model.Session, error)
	// MarkCompleted completes the session unless it already is. Reports whether
	// a row changed.
	MarkCompleted(ctx context.Context, id string) (bool, error)
	// CompleteFinished moves every session whose end time has passed to
	// completed, whatever state it was in.
	CompleteFinished(ctx context.Context, now time.Time) (int64, error)
	// DeleteOlderThan removes sessions dated before the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByDay removes every session on the given UTC calendar day.
	DeleteByDay(ctx context.Context, day time.Time) (int64, error)
	DeleteBySeries(ctx context.Context, seriesID string) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindMany(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
	where := []string{}
	args := []interface{}{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.TherapistID != "" {
		add("therapist_id = $%d", filter.TherapistID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.NotStatus != "" {
		add("status <> $%d", filter.NotStatus)
	}
	if !filter.DateFrom.IsZero() {
		add("date >= $%d", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		add("date <= $%d", filter.DateTo)
	}

	query := `SELECT * FROM sessions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC"

	sessions := []model.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (date, therapist_id, duration_minutes, vacancies, status, series_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.Date, params.TherapistID, params.DurationInMinutes, params.Vacancies, params.Status, params.SeriesID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) CreateMany(ctx context.Context, params []model.CreateSessionParams) ([]model.Session, error) {
	sessions := make([]model.Session, 0, len(params))
	for _, p := range params {
		session, err := r.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (r *sessionRepo) ClaimAvailable(ctx context.Context, id string, booking model.BookingUpdate) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			user_id = $2,
			status = $3,
			confirmation_token = $4,
			cancelation_token = $5,
			updated_at = now()
		WHERE id = $1 AND status = $6 AND user_id IS NULL
		RETURNING *
	`, id, booking.UserID, model.SessionStatusPending,
		booking.ConfirmationToken, booking.CancelationToken,
		model.SessionStatusAvailable)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Confirm(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			status = $2,
			updated_at = now()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING *
	`, id, model.SessionStatusConfirmed, model.SessionStatusPending, model.SessionStatusAvailable)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Release(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			user_id = NULL,
			confirmation_token = NULL,
			cancelation_token = NULL,
			status = $2,
			updated_at = now()
		WHERE id = $1 AND status <> $2
		RETURNING *
	`, id, model.SessionStatusAvailable)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = $2,
			updated_at = now()
		WHERE id = $1 AND status <> $2
	`, id, model.SessionStatusCompleted)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *sessionRepo) CompleteFinished(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = $2,
			updated_at = now()
		WHERE status <> $2
		  AND date + duration_minutes * interval '1 minute' <= $1
	`, now, model.SessionStatusCompleted)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE date < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) DeleteByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		DELETE FROM sessions WHERE id = $1 RETURNING *
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) DeleteByDay(ctx context.Context, day time.Time) (int64, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE date BETWEEN $1 AND $2
	`, start, end)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) DeleteBySeries(ctx context.Context, seriesID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE series_id = $1
	`, seriesID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
