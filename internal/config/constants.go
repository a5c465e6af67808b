package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	PruneJobInterval      = time.Hour
	ReminderJobInterval   = time.Hour
	CompletionJobInterval = 5 * time.Minute
)

// Sessions older than this are pruned.
const PruneRetention = 365 * 24 * time.Hour

// Reminders cover sessions starting within this window.
const ReminderWindow = 24 * time.Hour

// Booking tokens stop being valid this long before the session starts.
const BookingTokenCutoff = 24 * time.Hour

// Verification codes are valid this long after issuance.
const VerificationCodeTTL = 5 * time.Minute

// Rate limits for login attempts per IP and verification code requests
// per user.
const (
	MaxLoginAttempts   = 5
	LoginAttemptWindow = 15 * time.Minute
	MaxCodeRequests    = 3
	CodeRequestWindow  = 15 * time.Minute
)
