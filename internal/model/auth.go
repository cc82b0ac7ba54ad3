package model

import "time"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=5"`
}

// RefreshRequest accepts the camelCase field the web client sends and the
// snake_case spelling some mobile clients use.
type RefreshRequest struct {
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`
}

func (r RefreshRequest) Token() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.RefreshTokenSnake
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type TokenResponse struct {
	Status       int    `json:"status"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// AuthUser is the identity decoded from a verified access token.
type AuthUser struct {
	AccountID string
	Email     string
	IsAdmin   bool
}

type AuthMeResponse struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Account is the persisted user record. bson names match the documents the
// service has always written to the users collection.
type Account struct {
	ID           string         `json:"userId" bson:"user_id"`
	Email        string         `json:"email" bson:"email"`
	PasswordHash string         `json:"-" bson:"password"`
	IsAdmin      bool           `json:"isAdmin" bson:"isAdmin"`
	Google       *GoogleProfile `json:"google,omitempty" bson:"google,omitempty"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type GoogleProfile struct {
	GoogleID string `json:"googleId" bson:"googleId"`
	UserName string `json:"userName" bson:"userName"`
}
