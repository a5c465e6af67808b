package service

import (
	"context"
	"net/mail"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/config"
	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/events"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/redis"
	"github.com/therapease/booking-server-go/internal/repository"
	"github.com/therapease/booking-server-go/internal/token"
	"github.com/therapease/booking-server-go/internal/util"
)

// rateLimiter is the slice of the redis client the user service needs.
type rateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}

type RegisterInput struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	User         model.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"-"`
}

// UserService handles registration, email verification and login.
type UserService struct {
	userRepo repository.UserRepository
	auth     *token.AuthIssuer
	bus      *events.Bus
	limiter  rateLimiter
}

func NewUserService(userRepo repository.UserRepository, auth *token.AuthIssuer, bus *events.Bus, limiter rateLimiter) *UserService {
	return &UserService{
		userRepo: userRepo,
		auth:     auth,
		bus:      bus,
		limiter:  limiter,
	}
}

// Register creates an unverified account and mails a verification code.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if input.Name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if input.Surname == "" {
		return nil, apperrors.MissingRequired("surname")
	}
	if input.Email == "" {
		return nil, apperrors.MissingRequired("email")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, apperrors.InvalidInput("email", "not a valid address")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.InvalidInput("password", "must be at least 8 characters")
	}

	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("User")
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password").WithCause(err)
	}

	code, err := util.GenerateVerificationCode()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate verification code").WithCause(err)
	}

	user, err := s.userRepo.Create(ctx, model.CreateUserParams{
		Name:             input.Name,
		Surname:          input.Surname,
		Email:            input.Email,
		PasswordHash:     hash,
		VerificationCode: code,
		CodeExpiresAt:    time.Now().Add(config.VerificationCodeTTL),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	s.bus.Publish(events.UserRegistered{Email: user.Email, Code: code})

	log.Info().Str("userId", user.ID).Msg("user registered")
	return user, nil
}

// RequestVerificationCode issues a fresh code for an unverified account.
// Requests are throttled per user.
func (s *UserService) RequestVerificationCode(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.MissingRequired("userId")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if user == nil {
		return apperrors.NotFound("User")
	}
	if user.Verified {
		return apperrors.Conflict("User is already verified")
	}

	allowed, err := s.limiter.Allow(ctx, redis.CodeRequestsKey(user.ID),
		config.MaxCodeRequests, config.CodeRequestWindow)
	if err != nil {
		return apperrors.Internal("Rate limit check failed").WithCause(err)
	}
	if !allowed {
		return apperrors.RateLimitExceeded()
	}

	code, err := util.GenerateVerificationCode()
	if err != nil {
		return apperrors.Internal("Failed to generate verification code").WithCause(err)
	}

	if _, err := s.userRepo.SetVerificationCode(ctx, user.ID, code, time.Now().Add(config.VerificationCodeTTL)); err != nil {
		return apperrors.Database(err)
	}

	s.bus.Publish(events.NewVerificationCode{Email: user.Email, Code: code})

	log.Info().Str("userId", user.ID).Msg("verification code reissued")
	return nil
}

// Verify checks the mailed code and marks the account verified.
func (s *UserService) Verify(ctx context.Context, userID string, code int) (*model.User, error) {
	if userID == "" {
		return nil, apperrors.MissingRequired("userId")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	if user.Verified {
		return nil, apperrors.Conflict("User is already verified")
	}
	if user.VerificationCode == nil || user.CodeExpiresAt == nil {
		return nil, apperrors.Conflict("No verification code issued")
	}
	if time.Now().After(*user.CodeExpiresAt) {
		return nil, apperrors.TokenExpired()
	}
	if *user.VerificationCode != code {
		return nil, apperrors.InvalidInput("code", "does not match")
	}

	verified, err := s.userRepo.MarkVerified(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if verified == nil {
		return nil, apperrors.NotFound("User")
	}

	log.Info().Str("userId", user.ID).Msg("user verified")
	return verified, nil
}

// Login checks credentials and issues access and refresh tokens. Failed
// attempts are throttled per client IP; a successful login resets the
// counter.
func (s *UserService) Login(ctx context.Context, email, password, clientIP string) (*LoginResult, error) {
	if email == "" {
		return nil, apperrors.MissingRequired("email")
	}
	if password == "" {
		return nil, apperrors.MissingRequired("password")
	}

	attemptsKey := redis.LoginAttemptsKey(clientIP)
	allowed, err := s.limiter.Allow(ctx, attemptsKey,
		config.MaxLoginAttempts, config.LoginAttemptWindow)
	if err != nil {
		return nil, apperrors.Internal("Rate limit check failed").WithCause(err)
	}
	if !allowed {
		return nil, apperrors.RateLimitExceeded()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if !user.Verified {
		return nil, apperrors.UnverifiedUser()
	}

	accessToken, err := s.auth.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token").WithCause(err)
	}
	refreshToken, err := s.auth.IssueRefresh(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token").WithCause(err)
	}

	if err := s.limiter.Reset(ctx, attemptsKey); err != nil {
		log.Warn().Err(err).Msg("failed to reset login attempt counter")
	}

	log.Info().Str("userId", user.ID).Msg("user logged in")
	return &LoginResult{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperrors.Unauthorized("Missing refresh token")
	}

	claims, err := s.auth.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if user == nil {
		return "", apperrors.Unauthorized("Unknown user")
	}

	accessToken, err := s.auth.IssueAccess(user.ID, user.Role)
	if err != nil {
		return "", apperrors.Internal("Failed to issue token").WithCause(err)
	}
	return accessToken, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return users, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.userRepo.DeleteByID(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if user == nil {
		return apperrors.NotFound("User")
	}
	log.Info().Str("userId", id).Msg("user deleted")
	return nil
}
