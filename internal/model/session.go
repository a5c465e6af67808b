package model

import (
	"time"
)

type Session struct {
	ID                string        `db:"id" json:"id"`
	Date              time.Time     `db:"date" json:"date"`
	TherapistID       string        `db:"therapist_id" json:"therapistId"`
	UserID            *string       `db:"user_id" json:"userId,omitempty"`
	DurationInMinutes int           `db:"duration_minutes" json:"durationInMinutes"`
	Vacancies         int           `db:"vacancies" json:"vacancies"`
	Status            SessionStatus `db:"status" json:"status"`
	ConfirmationToken *string       `db:"confirmation_token" json:"confirmationToken,omitempty"`
	CancelationToken  *string       `db:"cancelation_token" json:"cancelationToken,omitempty"`
	SeriesID          *string       `db:"series_id" json:"seriesId,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// EndsAt is the instant the session is over.
func (s *Session) EndsAt() time.Time {
	return s.Date.Add(time.Duration(s.DurationInMinutes) * time.Minute)
}

type CreateSessionParams struct {
	Date              time.Time
	TherapistID       string
	DurationInMinutes int
	Vacancies         int
	Status            SessionStatus
	SeriesID          *string
}

// SessionFilter narrows session queries. Zero fields are ignored.
// Results are always ordered by date ascending.
type SessionFilter struct {
	UserID      string
	TherapistID string
	Status      SessionStatus
	// NotStatus excludes sessions in the given status.
	NotStatus SessionStatus
	// DateFrom/DateTo bound date inclusively when non-zero.
	DateFrom time.Time
	DateTo   time.Time
}

// BookingUpdate is applied when a user claims an available session.
type BookingUpdate struct {
	UserID            string
	ConfirmationToken string
	CancelationToken  string
}
