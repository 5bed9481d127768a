package models

// UserSummary is the minimal user view returned with every token pair.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthResult is the payload of every successful authentication event:
// login, registration, refresh and OAuth login all return it.
type AuthResult struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         UserSummary `json:"user"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username    string  `json:"username" binding:"required,min=3,max=32"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	FirstName   string  `json:"firstName" binding:"required"`
	SecondName  *string `json:"secondName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// RefreshRequest carries an optional body-borne refresh token. The cookie is
// the fallback; the body field wins when both are present.
type RefreshRequest struct {
	RefreshTokenID string `json:"refresh_token_id"`
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

// ExchangeCodeRequest is the body of POST /oauth/exchange-code.
type ExchangeCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// OAuthProfile is the normalized identity returned by a federation provider.
type OAuthProfile struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	PictureURL string `json:"picture"`
}
