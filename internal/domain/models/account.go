package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the credential-bearing identity record. PasswordHash is nil for
// accounts provisioned through an OAuth provider; password login against such
// an account fails with the generic invalid-credentials error.
type Account struct {
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile holds the display fields created alongside an account. The account
// store persists the pair atomically.
type Profile struct {
	UserID     uuid.UUID `json:"user_id"`
	FirstName  string    `json:"first_name"`
	SecondName *string   `json:"second_name,omitempty"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
}

// NewAccount is the input for account creation.
type NewAccount struct {
	Username     string
	Email        *string
	PhoneNumber  *string
	PasswordHash *string
	Profile      Profile
}
