// Package recurrence expands a start date and a repetition rule into the
// ordered list of occurrence dates for a session series.
package recurrence

import (
	"fmt"
	"time"

	"github.com/therapease/booking-server-go/internal/model"
)

// Expand computes the occurrence dates for a series starting at start and
// repeating per rule until the horizon of horizonDays is reached.
//
// The first element is always start itself. Each following date is derived
// from the previous one by applying the rule's step; a date that would reach
// or pass start+horizonDays is discarded and ends the expansion, so the last
// emitted date is strictly before the horizon. WEEKDAYS steps one day at a
// time but only emits Monday through Friday. MONTHLY uses calendar month
// arithmetic: day-of-month overflow normalizes forward (Jan 31 -> Mar 2/3),
// matching time.AddDate.
//
// An unknown rule or a non-positive horizon is a programming error and
// returns a non-nil error with no dates.
func Expand(start time.Time, rule model.Recurrence, horizonDays int) ([]time.Time, error) {
	if horizonDays <= 0 {
		return nil, fmt.Errorf("recurrence: horizon must be positive, got %d", horizonDays)
	}
	if !model.ValidRecurrence(rule) {
		return nil, fmt.Errorf("recurrence: unknown rule %q", rule)
	}

	end := start.Add(time.Duration(horizonDays) * 24 * time.Hour)
	dates := []time.Time{start}

	cur := start
	for {
		switch rule {
		case model.RecurrenceDaily, model.RecurrenceWeekdays:
			cur = cur.Add(24 * time.Hour)
		case model.RecurrenceWeekly:
			cur = cur.Add(7 * 24 * time.Hour)
		case model.RecurrenceMonthly:
			cur = cur.AddDate(0, 1, 0)
		}

		if !cur.Before(end) {
			return dates, nil
		}

		if rule == model.RecurrenceWeekdays && isWeekend(cur) {
			continue
		}

		dates = append(dates, cur)
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
