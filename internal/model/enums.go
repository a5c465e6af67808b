package model

// SessionStatus is the lifecycle state of a bookable session.
type SessionStatus string

const (
	SessionStatusAvailable SessionStatus = "available"
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusCompleted SessionStatus = "completed"
)

// Recurrence is the repetition rule of a session series.
type Recurrence string

const (
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekdays Recurrence = "weekdays"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

// ValidRecurrence reports whether r is one of the known recurrence rules.
func ValidRecurrence(r Recurrence) bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekdays, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// UserRole distinguishes regular patients from staff accounts.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)
