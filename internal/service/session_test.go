package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapease/booking-server-go/internal/database"
	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/events"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/repository"
	"github.com/therapease/booking-server-go/internal/token"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type mockSessionRepo struct {
	findByID         func(ctx context.Context, id string) (*model.Session, error)
	findMany         func(ctx context.Context, filter model.SessionFilter) ([]model.Session, error)
	create           func(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	createMany       func(ctx context.Context, params []model.CreateSessionParams) ([]model.Session, error)
	claimAvailable   func(ctx context.Context, id string, booking model.BookingUpdate) (*model.Session, error)
	confirm          func(ctx context.Context, id string) (*model.Session, error)
	release          func(ctx context.Context, id string) (*model.Session, error)
	markCompleted    func(ctx context.Context, id string) (bool, error)
	completeFinished func(ctx context.Context, now time.Time) (int64, error)
	deleteOlderThan  func(ctx context.Context, cutoff time.Time) (int64, error)
	deleteByID       func(ctx context.Context, id string) (*model.Session, error)
	deleteByDay      func(ctx context.Context, day time.Time) (int64, error)
	deleteBySeries   func(ctx context.Context, seriesID string) (int64, error)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByID == nil {
		return nil, nil
	}
	return m.findByID(ctx, id)
}

func (m *mockSessionRepo) FindMany(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
	if m.findMany == nil {
		return []model.Session{}, nil
	}
	return m.findMany(ctx, filter)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	if m.create == nil {
		s := sessionFromParams(params)
		return &s, nil
	}
	return m.create(ctx, params)
}

func (m *mockSessionRepo) CreateMany(ctx context.Context, params []model.CreateSessionParams) ([]model.Session, error) {
	if m.createMany == nil {
		sessions := make([]model.Session, 0, len(params))
		for _, p := range params {
			sessions = append(sessions, sessionFromParams(p))
		}
		return sessions, nil
	}
	return m.createMany(ctx, params)
}

func (m *mockSessionRepo) ClaimAvailable(ctx context.Context, id string, booking model.BookingUpdate) (*model.Session, error) {
	if m.claimAvailable == nil {
		return nil, nil
	}
	return m.claimAvailable(ctx, id, booking)
}

func (m *mockSessionRepo) Confirm(ctx context.Context, id string) (*model.Session, error) {
	if m.confirm == nil {
		return nil, nil
	}
	return m.confirm(ctx, id)
}

func (m *mockSessionRepo) Release(ctx context.Context, id string) (*model.Session, error) {
	if m.release == nil {
		return nil, nil
	}
	return m.release(ctx, id)
}

func (m *mockSessionRepo) MarkCompleted(ctx context.Context, id string) (bool, error) {
	if m.markCompleted == nil {
		return false, nil
	}
	return m.markCompleted(ctx, id)
}

func (m *mockSessionRepo) CompleteFinished(ctx context.Context, now time.Time) (int64, error) {
	if m.completeFinished == nil {
		return 0, nil
	}
	return m.completeFinished(ctx, now)
}

func (m *mockSessionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteOlderThan == nil {
		return 0, nil
	}
	return m.deleteOlderThan(ctx, cutoff)
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) (*model.Session, error) {
	if m.deleteByID == nil {
		return nil, nil
	}
	return m.deleteByID(ctx, id)
}

func (m *mockSessionRepo) DeleteByDay(ctx context.Context, day time.Time) (int64, error) {
	if m.deleteByDay == nil {
		return 0, nil
	}
	return m.deleteByDay(ctx, day)
}

func (m *mockSessionRepo) DeleteBySeries(ctx context.Context, seriesID string) (int64, error) {
	if m.deleteBySeries == nil {
		return 0, nil
	}
	return m.deleteBySeries(ctx, seriesID)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository { return m }

func sessionFromParams(p model.CreateSessionParams) model.Session {
	return model.Session{
		ID:                "generated",
		Date:              p.Date,
		TherapistID:       p.TherapistID,
		DurationInMinutes: p.DurationInMinutes,
		Vacancies:         p.Vacancies,
		Status:            p.Status,
		SeriesID:          p.SeriesID,
	}
}

type mockSeriesRepo struct {
	findByID   func(ctx context.Context, id string) (*model.Series, error)
	create     func(ctx context.Context, params model.CreateSeriesParams) (*model.Series, error)
	deleteByID func(ctx context.Context, id string) (*model.Series, error)
}

func (m *mockSeriesRepo) FindByID(ctx context.Context, id string) (*model.Series, error) {
	if m.findByID == nil {
		return nil, nil
	}
	return m.findByID(ctx, id)
}

func (m *mockSeriesRepo) FindAll(ctx context.Context) ([]model.Series, error) {
	return []model.Series{}, nil
}

func (m *mockSeriesRepo) Create(ctx context.Context, params model.CreateSeriesParams) (*model.Series, error) {
	if m.create == nil {
		return &model.Series{
			ID:         "series-1",
			Recurrence: params.Recurrence,
			StartDate:  params.StartDate,
			EndDate:    params.EndDate,
		}, nil
	}
	return m.create(ctx, params)
}

func (m *mockSeriesRepo) DeleteByID(ctx context.Context, id string) (*model.Series, error) {
	if m.deleteByID == nil {
		return nil, nil
	}
	return m.deleteByID(ctx, id)
}

func (m *mockSeriesRepo) WithTx(tx *sqlx.Tx) repository.SeriesRepository { return m }

type mockTemplateRepo struct {
	findByID func(ctx context.Context, id string) (*model.Template, error)
}

func (m *mockTemplateRepo) FindByID(ctx context.Context, id string) (*model.Template, error) {
	if m.findByID == nil {
		return nil, nil
	}
	return m.findByID(ctx, id)
}

func (m *mockTemplateRepo) FindAll(ctx context.Context) ([]model.Template, error) {
	return []model.Template{}, nil
}

func (m *mockTemplateRepo) Create(ctx context.Context, params model.CreateTemplateParams) (*model.Template, error) {
	return nil, nil
}

func (m *mockTemplateRepo) Update(ctx context.Context, id string, params model.UpdateTemplateParams) (*model.Template, error) {
	return nil, nil
}

func (m *mockTemplateRepo) DeleteByID(ctx context.Context, id string) (*model.Template, error) {
	return nil, nil
}

func (m *mockTemplateRepo) WithTx(tx *sqlx.Tx) repository.TemplateRepository { return m }

type mockTherapistRepo struct {
	findByID func(ctx context.Context, id string) (*model.Therapist, error)
}

func (m *mockTherapistRepo) FindByID(ctx context.Context, id string) (*model.Therapist, error) {
	if m.findByID == nil {
		return &model.Therapist{ID: id, Name: "Dr. Eva Kovacs"}, nil
	}
	return m.findByID(ctx, id)
}

func (m *mockTherapistRepo) FindAll(ctx context.Context) ([]model.Therapist, error) {
	return []model.Therapist{}, nil
}

func (m *mockTherapistRepo) Create(ctx context.Context, params model.CreateTherapistParams) (*model.Therapist, error) {
	return nil, nil
}

func (m *mockTherapistRepo) DeleteByID(ctx context.Context, id string) (*model.Therapist, error) {
	return nil, nil
}

func (m *mockTherapistRepo) WithTx(tx *sqlx.Tx) repository.TherapistRepository { return m }

type mockUserRepo struct {
	findByID            func(ctx context.Context, id string) (*model.User, error)
	findByEmail         func(ctx context.Context, email string) (*model.User, error)
	create              func(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	setVerificationCode func(ctx context.Context, id string, code int, expiresAt time.Time) (*model.User, error)
	markVerified        func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByID == nil {
		return nil, nil
	}
	return m.findByID(ctx, id)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmail == nil {
		return nil, nil
	}
	return m.findByEmail(ctx, email)
}

func (m *mockUserRepo) FindAll(ctx context.Context) ([]model.User, error) {
	return []model.User{}, nil
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	if m.create == nil {
		return nil, nil
	}
	return m.create(ctx, params)
}

func (m *mockUserRepo) SetVerificationCode(ctx context.Context, id string, code int, expiresAt time.Time) (*model.User, error) {
	if m.setVerificationCode == nil {
		return nil, nil
	}
	return m.setVerificationCode(ctx, id, code, expiresAt)
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, id string) (*model.User, error) {
	if m.markVerified == nil {
		return nil, nil
	}
	return m.markVerified(ctx, id)
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository { return m }

// eventRecorder collects published events so tests can assert on them after
// the bus dispatches asynchronously.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event{}, r.events...)
}

func (r *eventRecorder) waitForEvent(t *testing.T) events.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) > 0 {
			return got[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for event")
	return nil
}

type sessionServiceFixture struct {
	svc        *SessionService
	sessions   *mockSessionRepo
	series     *mockSeriesRepo
	templates  *mockTemplateRepo
	therapists *mockTherapistRepo
	users      *mockUserRepo
	bus        *events.Bus
	recorder   *eventRecorder
	issuer     *token.Issuer
}

func newSessionServiceFixture(t *testing.T) *sessionServiceFixture {
	t.Helper()

	f := &sessionServiceFixture{
		sessions:   &mockSessionRepo{},
		series:     &mockSeriesRepo{},
		templates:  &mockTemplateRepo{},
		therapists: &mockTherapistRepo{},
		users:      &mockUserRepo{},
		bus:        events.NewBus(),
		recorder:   &eventRecorder{},
		issuer:     token.NewIssuer("test-secret"),
	}
	t.Cleanup(f.bus.Close)

	f.bus.Subscribe(events.TypeSessionBooked, f.recorder.record)
	f.bus.Subscribe(events.TypeConfirmationDue, f.recorder.record)

	f.svc = NewSessionService(
		fakeTxRunner{},
		f.sessions, f.series, f.templates, f.therapists, f.users,
		f.issuer, f.bus,
		2, 90,
	)
	return f
}

func verifiedUser() *model.User {
	return &model.User{
		ID:       "user-1",
		Name:     "Anna",
		Surname:  "Berg",
		Email:    "anna@example.com",
		Verified: true,
	}
}

func availableSession(date time.Time) *model.Session {
	return &model.Session{
		ID:                "session-1",
		Date:              date,
		TherapistID:       "therapist-1",
		DurationInMinutes: 50,
		Vacancies:         1,
		Status:            model.SessionStatusAvailable,
	}
}

func TestSessionService_Book(t *testing.T) {
	ctx := context.Background()

	t.Run("books an available session and emits a booked event", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		date := time.Now().Add(72 * time.Hour)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return availableSession(date), nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}

		var claimed model.BookingUpdate
		f.sessions.claimAvailable = func(ctx context.Context, id string, booking model.BookingUpdate) (*model.Session, error) {
			claimed = booking
			s := availableSession(date)
			s.UserID = &booking.UserID
			s.Status = model.SessionStatusPending
			s.ConfirmationToken = &booking.ConfirmationToken
			s.CancelationToken = &booking.CancelationToken
			return s, nil
		}

		booked, err := f.svc.Book(ctx, "session-1", "user-1")
		require.NoError(t, err)
		require.NotNil(t, booked)
		assert.Equal(t, model.SessionStatusPending, booked.Status)
		require.NotNil(t, booked.UserID)
		assert.Equal(t, "user-1", *booked.UserID)

		assert.NotEmpty(t, claimed.ConfirmationToken)
		assert.NotEmpty(t, claimed.CancelationToken)
		assert.NotEqual(t, claimed.ConfirmationToken, claimed.CancelationToken)

		subject, err := f.issuer.Verify(claimed.ConfirmationToken, "session-1", token.UseConfirm)
		require.NoError(t, err)
		assert.Equal(t, "user-1", subject)

		event := f.recorder.waitForEvent(t)
		bookedEvent, ok := event.(events.SessionBooked)
		require.True(t, ok, "expected SessionBooked, got %T", event)
		assert.Equal(t, "anna@example.com", bookedEvent.Email)
	})

	t.Run("same day booking emits confirmation due instead", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		date := time.Now().Add(2 * time.Hour)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return availableSession(date), nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}
		f.sessions.claimAvailable = func(ctx context.Context, id string, booking model.BookingUpdate) (*model.Session, error) {
			s := availableSession(date)
			s.UserID = &booking.UserID
			s.Status = model.SessionStatusPending
			return s, nil
		}

		// A booking two hours out may cross midnight; skip the flaky window.
		if !date.UTC().Truncate(24 * time.Hour).Equal(time.Now().UTC().Truncate(24 * time.Hour)) {
			t.Skip("session falls on the next calendar day")
		}

		_, err := f.svc.Book(ctx, "session-1", "user-1")
		require.NoError(t, err)

		event := f.recorder.waitForEvent(t)
		_, ok := event.(events.ConfirmationDue)
		assert.True(t, ok, "expected ConfirmationDue, got %T", event)
	})

	t.Run("rejects a session that is already booked", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		other := "someone-else"

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			s := availableSession(time.Now().Add(48 * time.Hour))
			s.UserID = &other
			s.Status = model.SessionStatusPending
			return s, nil
		}

		_, err := f.svc.Book(ctx, "session-1", "user-1")
		assert.Equal(t, apperrors.ErrCodeAlreadyBooked, apperrors.GetCode(err))
	})

	t.Run("rejects a session that is not available", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			s := availableSession(time.Now().Add(48 * time.Hour))
			s.Status = model.SessionStatusCompleted
			return s, nil
		}

		_, err := f.svc.Book(ctx, "session-1", "user-1")
		assert.Equal(t, apperrors.ErrCodeNotAvailable, apperrors.GetCode(err))
	})

	t.Run("rejects an unknown session", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		_, err := f.svc.Book(ctx, "nope", "user-1")
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("rejects an unverified user", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return availableSession(time.Now().Add(48 * time.Hour)), nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			u := verifiedUser()
			u.Verified = false
			return u, nil
		}

		_, err := f.svc.Book(ctx, "session-1", "user-1")
		assert.Equal(t, apperrors.ErrCodeUnverifiedUser, apperrors.GetCode(err))
	})

	t.Run("enforces the daily cap", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		date := time.Now().Add(48 * time.Hour)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return availableSession(date), nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}
		f.sessions.findMany = func(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
			assert.Equal(t, "user-1", filter.UserID)
			return []model.Session{*availableSession(date), *availableSession(date)}, nil
		}

		_, err := f.svc.Book(ctx, "session-1", "user-1")
		assert.Equal(t, apperrors.ErrCodeDailyCapReached, apperrors.GetCode(err))
	})

	t.Run("losing the claim race reports not available", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return availableSession(time.Now().Add(48 * time.Hour)), nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}
		f.sessions.claimAvailable = func(ctx context.Context, id string, booking model.BookingUpdate) (*model.Session, error) {
			return nil, nil
		}

		_, err := f.svc.Book(ctx, "session-1", "user-1")
		assert.Equal(t, apperrors.ErrCodeNotAvailable, apperrors.GetCode(err))
	})
}

func TestBookingTokenTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expires a day before the session", func(t *testing.T) {
		ttl, err := bookingTokenTTL(now.Add(72*time.Hour), now)
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour, ttl)
	})

	t.Run("inside the cutoff window the token lives until the session", func(t *testing.T) {
		ttl, err := bookingTokenTTL(now.Add(3*time.Hour), now)
		require.NoError(t, err)
		assert.Equal(t, 3*time.Hour, ttl)
	})

	t.Run("a started session cannot be booked", func(t *testing.T) {
		_, err := bookingTokenTTL(now.Add(-time.Minute), now)
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})
}

func bookedSession(t *testing.T, f *sessionServiceFixture, date time.Time, status model.SessionStatus) (*model.Session, string, string) {
	t.Helper()

	ttl := time.Until(date)
	confirm, err := f.issuer.Issue("user-1", "session-1", token.UseConfirm, ttl)
	require.NoError(t, err)
	cancel, err := f.issuer.Issue("user-1", "session-1", token.UseCancel, ttl)
	require.NoError(t, err)

	userID := "user-1"
	s := availableSession(date)
	s.UserID = &userID
	s.Status = status
	s.ConfirmationToken = &confirm
	s.CancelationToken = &cancel
	return s, confirm, cancel
}

func TestSessionService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms a pending session with a valid token", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		session, confirm, _ := bookedSession(t, f, time.Now().Add(48*time.Hour), model.SessionStatusPending)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return session, nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}
		f.sessions.confirm = func(ctx context.Context, id string) (*model.Session, error) {
			confirmed := *session
			confirmed.Status = model.SessionStatusConfirmed
			return &confirmed, nil
		}

		updated, err := f.svc.Confirm(ctx, "session-1", confirm)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusConfirmed, updated.Status)
	})

	t.Run("rejects a missing token", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		_, err := f.svc.Confirm(ctx, "session-1", "")
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})

	t.Run("rejects a token that does not match the stored one", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		session, _, _ := bookedSession(t, f, time.Now().Add(48*time.Hour), model.SessionStatusPending)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return session, nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}

		_, err := f.svc.Confirm(ctx, "session-1", "not-the-token")
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})

	t.Run("the cancel token cannot confirm", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		session, _, cancel := bookedSession(t, f, time.Now().Add(48*time.Hour), model.SessionStatusPending)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return session, nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}

		_, err := f.svc.Confirm(ctx, "session-1", cancel)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		expired, err := f.issuer.Issue("user-1", "session-1", token.UseConfirm, -time.Minute)
		require.NoError(t, err)

		userID := "user-1"
		session := availableSession(time.Now().Add(48 * time.Hour))
		session.UserID = &userID
		session.Status = model.SessionStatusPending
		session.ConfirmationToken = &expired

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return session, nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}

		_, err = f.svc.Confirm(ctx, "session-1", expired)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, apperrors.GetCode(err))
	})

	t.Run("rejects a session nobody booked", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return availableSession(time.Now().Add(48 * time.Hour)), nil
		}

		_, err := f.svc.Confirm(ctx, "session-1", "whatever")
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})

	t.Run("rejects an already confirmed session", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		session, confirm, _ := bookedSession(t, f, time.Now().Add(48*time.Hour), model.SessionStatusConfirmed)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return session, nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}

		_, err := f.svc.Confirm(ctx, "session-1", confirm)
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})
}

func TestSessionService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a confirmed session and reopens the slot", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		session, _, cancel := bookedSession(t, f, time.Now().Add(48*time.Hour), model.SessionStatusConfirmed)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return session, nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}
		f.sessions.release = func(ctx context.Context, id string) (*model.Session, error) {
			released := availableSession(session.Date)
			return released, nil
		}

		updated, err := f.svc.Cancel(ctx, "session-1", cancel)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusAvailable, updated.Status)
		assert.Nil(t, updated.UserID)
		assert.Nil(t, updated.ConfirmationToken)
		assert.Nil(t, updated.CancelationToken)
	})

	t.Run("the confirm token cannot cancel", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		session, confirm, _ := bookedSession(t, f, time.Now().Add(48*time.Hour), model.SessionStatusPending)

		f.sessions.findByID = func(ctx context.Context, id string) (*model.Session, error) {
			return session, nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}

		_, err := f.svc.Cancel(ctx, "session-1", confirm)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
	})
}

func TestSessionService_CreateRecurring(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a series and its sessions", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

		var created []model.CreateSessionParams
		f.sessions.createMany = func(ctx context.Context, params []model.CreateSessionParams) ([]model.Session, error) {
			created = params
			sessions := make([]model.Session, 0, len(params))
			for _, p := range params {
				sessions = append(sessions, sessionFromParams(p))
			}
			return sessions, nil
		}

		result, err := f.svc.CreateRecurring(ctx, CreateRecurringInput{
			Date:              start,
			TherapistID:       "therapist-1",
			DurationInMinutes: 50,
			Vacancies:         1,
			Recurrence:        model.RecurrenceWeekly,
		})
		require.NoError(t, err)

		// 90 day horizon, weekly cadence: 13 sessions starting at the start date.
		assert.Len(t, result.Sessions, 13)
		assert.Equal(t, start, result.Series.StartDate)
		for _, p := range created {
			require.NotNil(t, p.SeriesID)
			assert.Equal(t, "series-1", *p.SeriesID)
			assert.Equal(t, model.SessionStatusAvailable, p.Status)
		}
	})

	t.Run("rejects an unknown recurrence rule", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		_, err := f.svc.CreateRecurring(ctx, CreateRecurringInput{
			Date:              time.Now().Add(48 * time.Hour),
			TherapistID:       "therapist-1",
			DurationInMinutes: 50,
			Vacancies:         1,
			Recurrence:        model.Recurrence("fortnightly"),
		})
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("rejects a start date in the past", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		_, err := f.svc.CreateRecurring(ctx, CreateRecurringInput{
			Date:              time.Now().Add(-time.Hour),
			TherapistID:       "therapist-1",
			DurationInMinutes: 50,
			Vacancies:         1,
			Recurrence:        model.RecurrenceDaily,
		})
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("rejects an unknown therapist", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		f.therapists.findByID = func(ctx context.Context, id string) (*model.Therapist, error) {
			return nil, nil
		}

		_, err := f.svc.CreateRecurring(ctx, CreateRecurringInput{
			Date:              time.Now().Add(48 * time.Hour),
			TherapistID:       "nope",
			DurationInMinutes: 50,
			Vacancies:         1,
			Recurrence:        model.RecurrenceDaily,
		})
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestSessionService_CreateFromTemplate(t *testing.T) {
	ctx := context.Background()

	template := &model.Template{
		ID:                "template-1",
		TherapistID:       "therapist-1",
		DurationInMinutes: 50,
		Vacancies:         1,
		StartTimes:        []string{"09:00", "11:00", "15:00"},
	}

	t.Run("creates one session per start time on a future day", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		f.templates.findByID = func(ctx context.Context, id string) (*model.Template, error) {
			return template, nil
		}

		tomorrow := time.Now().UTC().AddDate(0, 0, 1)
		sessions, err := f.svc.CreateFromTemplate(ctx, tomorrow, "template-1")
		require.NoError(t, err)
		require.Len(t, sessions, 3)

		assert.Equal(t, 9, sessions[0].Date.Hour())
		assert.Equal(t, 11, sessions[1].Date.Hour())
		assert.Equal(t, 15, sessions[2].Date.Hour())
		for _, s := range sessions {
			assert.Equal(t, "therapist-1", s.TherapistID)
			assert.Equal(t, model.SessionStatusAvailable, s.Status)
			assert.Nil(t, s.SeriesID)
		}
	})

	t.Run("a day fully in the past yields nothing to create", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		f.templates.findByID = func(ctx context.Context, id string) (*model.Template, error) {
			return template, nil
		}

		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		_, err := f.svc.CreateFromTemplate(ctx, yesterday, "template-1")
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})

	t.Run("rejects an unknown template", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		_, err := f.svc.CreateFromTemplate(ctx, time.Now().AddDate(0, 0, 1), "nope")
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestSessionService_ClearDay(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every session of the day", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		f.sessions.deleteByDay = func(ctx context.Context, day time.Time) (int64, error) {
			return 4, nil
		}

		deleted, err := f.svc.ClearDay(ctx, time.Now().AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, int64(4), deleted)
	})

	t.Run("an empty day reports not found", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		_, err := f.svc.ClearDay(ctx, time.Now().AddDate(0, 0, 1))
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestSessionService_DeleteRecurring(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the series and its sessions", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		f.series.findByID = func(ctx context.Context, id string) (*model.Series, error) {
			return &model.Series{ID: id, Recurrence: model.RecurrenceWeekly}, nil
		}

		var deletedSessions, deletedSeries bool
		f.sessions.deleteBySeries = func(ctx context.Context, seriesID string) (int64, error) {
			assert.Equal(t, "series-1", seriesID)
			deletedSessions = true
			return 13, nil
		}
		f.series.deleteByID = func(ctx context.Context, id string) (*model.Series, error) {
			deletedSeries = true
			return &model.Series{ID: id}, nil
		}

		err := f.svc.DeleteRecurring(ctx, "series-1")
		require.NoError(t, err)
		assert.True(t, deletedSessions)
		assert.True(t, deletedSeries)
	})

	t.Run("rejects an unknown series", func(t *testing.T) {
		f := newSessionServiceFixture(t)

		err := f.svc.DeleteRecurring(ctx, "nope")
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestSessionService_SessionsByDate(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	newDaySessions := func() []model.Session {
		userID := "user-1"
		booked := *availableSession(day.Add(9 * time.Hour))
		booked.ID = "session-booked"
		booked.UserID = &userID
		booked.Status = model.SessionStatusConfirmed

		open := *availableSession(day.Add(11 * time.Hour))
		open.ID = "session-open"
		return []model.Session{booked, open}
	}

	t.Run("public listing hides the booking user", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		f.sessions.findMany = func(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
			assert.Equal(t, day, filter.DateFrom)
			return newDaySessions(), nil
		}

		result, err := f.svc.SessionsByDate(ctx, day.Add(10*time.Hour))
		require.NoError(t, err)
		require.Len(t, result, 2)

		for _, s := range result {
			assert.Nil(t, s.UserID)
			assert.Equal(t, "Dr. Eva Kovacs", s.Therapist.Name)
		}
	})

	t.Run("detailed listing includes the booking user", func(t *testing.T) {
		f := newSessionServiceFixture(t)
		f.sessions.findMany = func(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
			return newDaySessions(), nil
		}
		f.users.findByID = func(ctx context.Context, id string) (*model.User, error) {
			return verifiedUser(), nil
		}

		result, err := f.svc.SessionsByDateDetailed(ctx, day)
		require.NoError(t, err)
		require.Len(t, result, 2)

		require.NotNil(t, result[0].User)
		assert.Equal(t, "anna@example.com", result[0].User.Email)
		assert.Nil(t, result[1].User)
	})
}

func TestSessionService_MonthOverview(t *testing.T) {
	ctx := context.Background()

	f := newSessionServiceFixture(t)
	f.sessions.findMany = func(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
		day := func(d, hour int) time.Time {
			return time.Date(2026, 9, d, hour, 0, 0, 0, time.UTC)
		}
		userID := "user-1"

		openDay := *availableSession(day(3, 9))
		confirmedOnOpenDay := *availableSession(day(3, 11))
		confirmedOnOpenDay.Status = model.SessionStatusConfirmed
		confirmedOnOpenDay.UserID = &userID

		pendingDay := *availableSession(day(10, 9))
		pendingDay.Status = model.SessionStatusPending
		pendingDay.UserID = &userID

		fullDay := *availableSession(day(17, 9))
		fullDay.Status = model.SessionStatusConfirmed
		fullDay.UserID = &userID

		return []model.Session{openDay, confirmedOnOpenDay, pendingDay, fullDay}, nil
	}

	overview, err := f.svc.MonthOverview(ctx, 2026, time.September)
	require.NoError(t, err)

	require.Len(t, overview.Available, 1)
	assert.Equal(t, 3, overview.Available[0].UTC().Day())

	require.Len(t, overview.Pending, 1)
	assert.Equal(t, 10, overview.Pending[0].UTC().Day())

	require.Len(t, overview.Full, 1)
	assert.Equal(t, 17, overview.Full[0].UTC().Day())
}
