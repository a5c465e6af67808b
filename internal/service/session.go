package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/config"
	"github.com/therapease/booking-server-go/internal/database"
	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/events"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/recurrence"
	"github.com/therapease/booking-server-go/internal/repository"
	"github.com/therapease/booking-server-go/internal/token"
)

// txRunner runs a function inside a database transaction. *database.DB
// satisfies it; tests substitute a pass-through.
type txRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type TherapistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SessionWithTherapist struct {
	model.Session
	Therapist TherapistRef `json:"therapist"`
}

type SessionDetailed struct {
	model.Session
	Therapist TherapistRef `json:"therapist"`
	User      *UserRef     `json:"user,omitempty"`
}

// DayStatusByMonth buckets each day of a month by how booked it is:
// at least one open slot, none open but some pending, or fully taken.
type DayStatusByMonth struct {
	Available []time.Time `json:"available"`
	Pending   []time.Time `json:"pending"`
	Full      []time.Time `json:"full"`
}

type CreateSessionInput struct {
	Date              time.Time
	TherapistID       string
	DurationInMinutes int
	Vacancies         int
}

type CreateRecurringInput struct {
	Date              time.Time
	TherapistID       string
	DurationInMinutes int
	Vacancies         int
	Recurrence        model.Recurrence
}

type CreateRecurringResult struct {
	Series   model.Series    `json:"series"`
	Sessions []model.Session `json:"sessions"`
}

// SessionService owns the session lifecycle: creation (single, template,
// recurring series), booking admission, token-based confirm/cancel and the
// queries the calendar UI is built on.
type SessionService struct {
	db            txRunner
	sessionRepo   repository.SessionRepository
	seriesRepo    repository.SeriesRepository
	templateRepo  repository.TemplateRepository
	therapistRepo repository.TherapistRepository
	userRepo      repository.UserRepository
	tokens        *token.Issuer
	bus           *events.Bus

	maxSessionsUserPerDay int
	seriesLengthDays      int
}

func NewSessionService(
	db txRunner,
	sessionRepo repository.SessionRepository,
	seriesRepo repository.SeriesRepository,
	templateRepo repository.TemplateRepository,
	therapistRepo repository.TherapistRepository,
	userRepo repository.UserRepository,
	tokens *token.Issuer,
	bus *events.Bus,
	maxSessionsUserPerDay int,
	seriesLengthDays int,
) *SessionService {
	return &SessionService{
		db:                    db,
		sessionRepo:           sessionRepo,
		seriesRepo:            seriesRepo,
		templateRepo:          templateRepo,
		therapistRepo:         therapistRepo,
		userRepo:              userRepo,
		tokens:                tokens,
		bus:                   bus,
		maxSessionsUserPerDay: maxSessionsUserPerDay,
		seriesLengthDays:      seriesLengthDays,
	}
}

func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
	sessions, err := s.sessionRepo.FindMany(ctx, filter)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

func (s *SessionService) Create(ctx context.Context, input CreateSessionInput) (*model.Session, error) {
	if input.Date.IsZero() {
		return nil, apperrors.MissingRequired("date")
	}
	if input.TherapistID == "" {
		return nil, apperrors.MissingRequired("therapistId")
	}
	if input.DurationInMinutes <= 0 {
		return nil, apperrors.InvalidInput("durationInMinutes", "must be positive")
	}
	if input.Vacancies <= 0 {
		return nil, apperrors.InvalidInput("vacancies", "must be positive")
	}
	if !input.Date.After(time.Now()) {
		return nil, apperrors.ValidationError("Not allowed to create sessions in the past")
	}

	therapist, err := s.therapistRepo.FindByID(ctx, input.TherapistID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if therapist == nil {
		return nil, apperrors.NotFound("Therapist")
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		Date:              input.Date,
		TherapistID:       input.TherapistID,
		DurationInMinutes: input.DurationInMinutes,
		Vacancies:         input.Vacancies,
		Status:            model.SessionStatusAvailable,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return session, nil
}

// Book claims an available session for a user. Admission checks run in
// order; the final claim is a conditional update so two racing bookings
// cannot both win.
func (s *SessionService) Book(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, apperrors.MissingRequired("userId")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if session.UserID != nil {
		return nil, apperrors.AlreadyBooked()
	}
	if session.Status != model.SessionStatusAvailable {
		return nil, apperrors.NotAvailable()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	if !user.Verified {
		return nil, apperrors.UnverifiedUser()
	}

	dayStart, dayEnd := dayBounds(session.Date)
	booked, err := s.sessionRepo.FindMany(ctx, model.SessionFilter{
		UserID:   userID,
		DateFrom: dayStart,
		DateTo:   dayEnd,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if len(booked) >= s.maxSessionsUserPerDay {
		return nil, apperrors.DailyCapReached()
	}

	ttl, err := bookingTokenTTL(session.Date, time.Now())
	if err != nil {
		return nil, err
	}

	confirmToken, err := s.tokens.Issue(userID, sessionID, token.UseConfirm, ttl)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token").WithCause(err)
	}
	cancelToken, err := s.tokens.Issue(userID, sessionID, token.UseCancel, ttl)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token").WithCause(err)
	}

	updated, err := s.sessionRepo.ClaimAvailable(ctx, sessionID, model.BookingUpdate{
		UserID:            userID,
		ConfirmationToken: confirmToken,
		CancelationToken:  cancelToken,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		// Lost the race against another booking.
		return nil, apperrors.NotAvailable()
	}

	if sameDay(updated.Date, time.Now()) {
		s.bus.Publish(events.ConfirmationDue{Session: *updated, Email: user.Email})
	} else {
		s.bus.Publish(events.SessionBooked{Session: *updated, Email: user.Email})
	}

	log.Info().
		Str("sessionId", updated.ID).
		Str("userId", userID).
		Time("date", updated.Date).
		Msg("session booked")

	return updated, nil
}

// bookingTokenTTL is the lifetime of confirm/cancel tokens: they expire 24h
// before the session starts. For bookings made inside that window the
// tokens stay valid until the session begins instead of being born expired.
func bookingTokenTTL(sessionDate, now time.Time) (time.Duration, error) {
	ttl := sessionDate.Add(-config.BookingTokenCutoff).Sub(now)
	if ttl <= 0 {
		ttl = sessionDate.Sub(now)
	}
	if ttl <= 0 {
		return 0, apperrors.Conflict("Session already started")
	}
	return ttl, nil
}

func (s *SessionService) Confirm(ctx context.Context, sessionID, rawToken string) (*model.Session, error) {
	session, _, err := s.verifyBookingToken(ctx, sessionID, rawToken, token.UseConfirm)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionStatusPending && session.Status != model.SessionStatusAvailable {
		return nil, apperrors.Conflict("Session already confirmed or canceled")
	}

	updated, err := s.sessionRepo.Confirm(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.Conflict("Session already confirmed or canceled")
	}

	log.Info().Str("sessionId", sessionID).Msg("session confirmed")
	return updated, nil
}

func (s *SessionService) Cancel(ctx context.Context, sessionID, rawToken string) (*model.Session, error) {
	session, _, err := s.verifyBookingToken(ctx, sessionID, rawToken, token.UseCancel)
	if err != nil {
		return nil, err
	}

	if session.Status == model.SessionStatusAvailable {
		return nil, apperrors.Conflict("Session already canceled")
	}

	updated, err := s.sessionRepo.Release(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.Conflict("Session already canceled")
	}

	log.Info().Str("sessionId", sessionID).Msg("session canceled, slot reopened")
	return updated, nil
}

// verifyBookingToken runs the shared confirm/cancel checks: session exists
// and is booked by a verified user, and the presented token is the stored
// one, correctly signed and not expired.
func (s *SessionService) verifyBookingToken(ctx context.Context, sessionID, rawToken string, use token.Use) (*model.Session, *model.User, error) {
	if rawToken == "" {
		return nil, nil, apperrors.MissingRequired("token")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, nil, apperrors.NotFound("Session")
	}
	if session.UserID == nil {
		return nil, nil, apperrors.Conflict("Session is not booked")
	}

	user, err := s.userRepo.FindByID(ctx, *session.UserID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, nil, apperrors.NotFound("User")
	}
	if !user.Verified {
		return nil, nil, apperrors.UnverifiedUser()
	}

	stored := session.ConfirmationToken
	if use == token.UseCancel {
		stored = session.CancelationToken
	}
	if stored == nil || *stored != rawToken {
		return nil, nil, apperrors.InvalidToken("Invalid token")
	}

	subject, err := s.tokens.Verify(rawToken, sessionID, use)
	if err != nil {
		return nil, nil, err
	}
	if subject != *session.UserID {
		return nil, nil, apperrors.InvalidToken("Token was issued for another user")
	}

	return session, user, nil
}

// Delete removes a single session outright, booked or not.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	session, err := s.sessionRepo.DeleteByID(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if session == nil {
		return apperrors.NotFound("Session")
	}
	log.Info().Str("sessionId", id).Msg("session deleted")
	return nil
}

// CreateRecurring expands the recurrence rule over the configured series
// horizon and creates the series plus its sessions in one transaction.
func (s *SessionService) CreateRecurring(ctx context.Context, input CreateRecurringInput) (*CreateRecurringResult, error) {
	if input.Date.IsZero() {
		return nil, apperrors.MissingRequired("date")
	}
	if input.TherapistID == "" {
		return nil, apperrors.MissingRequired("therapistId")
	}
	if input.DurationInMinutes <= 0 {
		return nil, apperrors.InvalidInput("durationInMinutes", "must be positive")
	}
	if input.Vacancies <= 0 {
		return nil, apperrors.InvalidInput("vacancies", "must be positive")
	}
	if !model.ValidRecurrence(input.Recurrence) {
		return nil, apperrors.InvalidInput("recurrence", "unknown rule")
	}
	if !input.Date.After(time.Now()) {
		return nil, apperrors.ValidationError("Not allowed to create sessions in the past")
	}

	therapist, err := s.therapistRepo.FindByID(ctx, input.TherapistID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if therapist == nil {
		return nil, apperrors.NotFound("Therapist")
	}

	dates, err := recurrence.Expand(input.Date, input.Recurrence, s.seriesLengthDays)
	if err != nil {
		return nil, apperrors.Internal("Failed to compute recurrence dates").WithCause(err)
	}

	var result CreateRecurringResult
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		seriesRepo := s.seriesRepo
		sessionRepo := s.sessionRepo
		if tx != nil {
			seriesRepo = seriesRepo.WithTx(tx)
			sessionRepo = sessionRepo.WithTx(tx)
		}

		series, err := seriesRepo.Create(ctx, model.CreateSeriesParams{
			Recurrence: input.Recurrence,
			StartDate:  dates[0],
			EndDate:    dates[len(dates)-1],
		})
		if err != nil {
			return fmt.Errorf("create series: %w", err)
		}

		params := make([]model.CreateSessionParams, 0, len(dates))
		for _, date := range dates {
			params = append(params, model.CreateSessionParams{
				Date:              date,
				TherapistID:       input.TherapistID,
				DurationInMinutes: input.DurationInMinutes,
				Vacancies:         input.Vacancies,
				Status:            model.SessionStatusAvailable,
				SeriesID:          &series.ID,
			})
		}

		sessions, err := sessionRepo.CreateMany(ctx, params)
		if err != nil {
			return fmt.Errorf("create sessions: %w", err)
		}

		result = CreateRecurringResult{Series: *series, Sessions: sessions}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("seriesId", result.Series.ID).
		Int("sessions", len(result.Sessions)).
		Str("recurrence", string(input.Recurrence)).
		Msg("recurring sessions created")

	return &result, nil
}

// CreateFromTemplate stamps out one available session per template start
// time on the given calendar date. Start times already in the past are
// skipped; if none remain the call fails.
func (s *SessionService) CreateFromTemplate(ctx context.Context, date time.Time, templateID string) ([]model.Session, error) {
	if date.IsZero() {
		return nil, apperrors.MissingRequired("date")
	}
	if templateID == "" {
		return nil, apperrors.MissingRequired("templateId")
	}

	template, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if template == nil {
		return nil, apperrors.NotFound("Template")
	}

	now := time.Now()
	dates := make([]time.Time, 0, len(template.StartTimes))
	for _, startTime := range template.StartTimes {
		clock, err := time.Parse("15:04", startTime)
		if err != nil {
			return nil, apperrors.Internal("Template has a malformed start time").WithCause(err)
		}
		d := time.Date(date.Year(), date.Month(), date.Day(),
			clock.Hour(), clock.Minute(), 0, 0, time.UTC)
		if d.After(now) {
			dates = append(dates, d)
		}
	}

	if len(dates) == 0 {
		return nil, apperrors.Conflict("Cannot create sessions before the current time")
	}

	params := make([]model.CreateSessionParams, 0, len(dates))
	for _, d := range dates {
		params = append(params, model.CreateSessionParams{
			Date:              d,
			TherapistID:       template.TherapistID,
			DurationInMinutes: template.DurationInMinutes,
			Vacancies:         template.Vacancies,
			Status:            model.SessionStatusAvailable,
		})
	}

	sessions, err := s.sessionRepo.CreateMany(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("templateId", templateID).
		Int("sessions", len(sessions)).
		Time("date", date).
		Msg("sessions created from template")

	return sessions, nil
}

// ClearDay deletes every session on the given calendar day.
func (s *SessionService) ClearDay(ctx context.Context, date time.Time) (int64, error) {
	if date.IsZero() {
		return 0, apperrors.MissingRequired("date")
	}

	deleted, err := s.sessionRepo.DeleteByDay(ctx, date)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if deleted == 0 {
		return 0, apperrors.NotFound("Sessions")
	}

	log.Info().Time("date", date).Int64("deleted", deleted).Msg("day cleared")
	return deleted, nil
}

// DeleteRecurring removes a series and all its sessions in one transaction.
func (s *SessionService) DeleteRecurring(ctx context.Context, seriesID string) error {
	series, err := s.seriesRepo.FindByID(ctx, seriesID)
	if err != nil {
		return apperrors.Database(err)
	}
	if series == nil {
		return apperrors.NotFound("Series")
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		seriesRepo := s.seriesRepo
		sessionRepo := s.sessionRepo
		if tx != nil {
			seriesRepo = seriesRepo.WithTx(tx)
			sessionRepo = sessionRepo.WithTx(tx)
		}

		if _, err := sessionRepo.DeleteBySeries(ctx, seriesID); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if _, err := seriesRepo.DeleteByID(ctx, seriesID); err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Database(err)
	}

	log.Info().Str("seriesId", seriesID).Msg("series and sessions deleted")
	return nil
}

// SessionsByDate lists a day's sessions with their therapist, without
// exposing who booked them.
func (s *SessionService) SessionsByDate(ctx context.Context, date time.Time) ([]SessionWithTherapist, error) {
	sessions, err := s.sessionsOn(ctx, date)
	if err != nil {
		return nil, err
	}

	result := make([]SessionWithTherapist, 0, len(sessions))
	for _, session := range sessions {
		ref, err := s.therapistRef(ctx, session.TherapistID)
		if err != nil {
			return nil, err
		}
		public := session
		public.UserID = nil
		result = append(result, SessionWithTherapist{Session: public, Therapist: ref})
	}
	return result, nil
}

// SessionsByDateDetailed is the staff view: includes the booking user.
func (s *SessionService) SessionsByDateDetailed(ctx context.Context, date time.Time) ([]SessionDetailed, error) {
	sessions, err := s.sessionsOn(ctx, date)
	if err != nil {
		return nil, err
	}

	result := make([]SessionDetailed, 0, len(sessions))
	for _, session := range sessions {
		ref, err := s.therapistRef(ctx, session.TherapistID)
		if err != nil {
			return nil, err
		}

		detailed := SessionDetailed{Session: session, Therapist: ref}
		if session.UserID != nil {
			user, err := s.userRepo.FindByID(ctx, *session.UserID)
			if err != nil {
				return nil, apperrors.Database(err)
			}
			if user != nil {
				detailed.User = &UserRef{ID: user.ID, Name: user.Name, Email: user.Email}
			}
		}
		result = append(result, detailed)
	}
	return result, nil
}

// MonthOverview classifies each day of the month that has sessions.
func (s *SessionService) MonthOverview(ctx context.Context, year int, month time.Month) (*DayStatusByMonth, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	sessions, err := s.sessionRepo.FindMany(ctx, model.SessionFilter{
		DateFrom: start,
		DateTo:   end,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	byDay := map[int][]model.Session{}
	for _, session := range sessions {
		day := session.Date.UTC().Day()
		byDay[day] = append(byDay[day], session)
	}

	overview := &DayStatusByMonth{
		Available: []time.Time{},
		Pending:   []time.Time{},
		Full:      []time.Time{},
	}
	for _, group := range byDay {
		date := group[0].Date
		switch {
		case anyWithStatus(group, model.SessionStatusAvailable):
			overview.Available = append(overview.Available, date)
		case anyWithStatus(group, model.SessionStatusPending):
			overview.Pending = append(overview.Pending, date)
		default:
			overview.Full = append(overview.Full, date)
		}
	}
	return overview, nil
}

func (s *SessionService) sessionsOn(ctx context.Context, date time.Time) ([]model.Session, error) {
	if date.IsZero() {
		return nil, apperrors.MissingRequired("date")
	}

	dayStart, dayEnd := dayBounds(date)
	sessions, err := s.sessionRepo.FindMany(ctx, model.SessionFilter{
		DateFrom: dayStart,
		DateTo:   dayEnd,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

func (s *SessionService) therapistRef(ctx context.Context, id string) (TherapistRef, error) {
	therapist, err := s.therapistRepo.FindByID(ctx, id)
	if err != nil {
		return TherapistRef{}, apperrors.Database(err)
	}
	if therapist == nil {
		return TherapistRef{ID: id}, nil
	}
	return TherapistRef{ID: therapist.ID, Name: therapist.Name}, nil
}

func anyWithStatus(sessions []model.Session, status model.SessionStatus) bool {
	for _, s := range sessions {
		if s.Status == status {
			return true
		}
	}
	return false
}

// dayBounds returns the inclusive UTC bounds of the calendar day around t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month() && au.Day() == bu.Day()
}
