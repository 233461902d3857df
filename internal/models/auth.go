package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	// TeacherID links a TEACHER principal to its instructor record.
	TeacherID string `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}
