package model

import "time"

// Series groups the sessions generated together under one recurrence rule.
// Member sessions reference it through their SeriesID.
type Series struct {
	ID         string     `db:"id" json:"id"`
	Recurrence Recurrence `db:"recurrence" json:"recurrence"`
	StartDate  time.Time  `db:"start_date" json:"startDate"`
	EndDate    time.Time  `db:"end_date" json:"endDate"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

type CreateSeriesParams struct {
	Recurrence Recurrence
	StartDate  time.Time
	EndDate    time.Time
}
