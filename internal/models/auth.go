package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates roles carried by access tokens.
type UserRole string

// Known roles.
const (
	RoleAdmin UserRole = "ADMIN"
	RoleStaff UserRole = "STAFF"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
