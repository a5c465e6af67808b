package model

import (
	"time"

	"github.com/lib/pq"
)

// Template is a reusable daily schedule: one session is stamped out per
// start time when the template is applied to a calendar date.
type Template struct {
	ID                string         `db:"id" json:"id"`
	TherapistID       string         `db:"therapist_id" json:"therapistId"`
	DurationInMinutes int            `db:"duration_minutes" json:"durationInMinutes"`
	Vacancies         int            `db:"vacancies" json:"vacancies"`
	StartTimes        pq.StringArray `db:"start_times" json:"startTimes"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

type CreateTemplateParams struct {
	TherapistID       string
	DurationInMinutes int
	Vacancies         int
	// StartTimes are "HH:MM" clock values, earliest first.
	StartTimes []string
}

type UpdateTemplateParams struct {
	DurationInMinutes *int
	Vacancies         *int
	StartTimes        []string
}
