package model

import "time"

type User struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Surname          string     `db:"surname" json:"surname"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             UserRole   `db:"role" json:"role"`
	Verified         bool       `db:"verified" json:"verified"`
	VerificationCode *int       `db:"verification_code" json:"-"`
	CodeExpiresAt    *time.Time `db:"code_expires_at" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

type CreateUserParams struct {
	Name             string
	Surname          string
	Email            string
	PasswordHash     string
	VerificationCode int
	CodeExpiresAt    time.Time
}
