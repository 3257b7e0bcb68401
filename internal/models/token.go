package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims carries the identity fields embedded in access tokens.
// TeacherID and ClassID are empty for teacher principals.
type JWTClaims struct {
	UserID    string `json:"uid"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	TeacherID string `json:"teacher_id,omitempty"`
	ClassID   string `json:"class_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts token claims into the tagged principal variant.
func (c *JWTClaims) Principal() (Principal, bool) {
	switch c.Role {
	case RoleTeacher:
		return Teacher{ID: c.UserID}, true
	case RoleStudent:
		if c.TeacherID == "" || c.ClassID == "" {
			return nil, false
		}
		return Student{ID: c.UserID, TeacherID: c.TeacherID, ClassID: c.ClassID}, true
	default:
		return nil, false
	}
}

// LoginRequest is the credential payload for token issuance.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and basic identity info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo is the public projection of a user row.
type UserInfo struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Role      Role    `json:"role"`
	TeacherID *string `json:"teacher_id,omitempty"`
	ClassID   *string `json:"class_id,omitempty"`
}

// RegisterRequest creates a user. TeacherID and ClassID must both be
// present (student) or both absent (teacher).
type RegisterRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=64"`
	Password  string  `json:"password" validate:"required,min=6"`
	TeacherID *string `json:"teacher_id,omitempty"`
	ClassID   *string `json:"class_id,omitempty"`
}

// ChangePasswordRequest updates the caller's own password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}
