package dto

import "time"

// LoginRequest payload for sign-in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest payload for registration. Role aliases are optional; an empty
// list grants the regular user role.
type SignupRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"role"`
}

// TokenRefreshRequest payload for exchanging a refresh token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// JwtResponse is returned on successful sign-in.
type JwtResponse struct {
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken"`
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Roles        []string  `json:"roles"`
}

// TokenRefreshResponse is returned on successful refresh. The refresh token
// string echoes the request; it is not rotated here.
type TokenRefreshResponse struct {
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken"`
}

// MessageResponse wraps plain confirmation messages.
type MessageResponse struct {
	Message string `json:"message"`
}
