package models

import "time"

// Role distinguishes the two principal kinds.
type Role string

const (
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// User represents an application user stored in the users table.
// A teacher row has neither teacher_id nor class_id; a student row
// always has both.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TeacherID    *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	ClassID      *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Role derives the user's role from its ownership links.
func (u *User) Role() Role {
	if u.TeacherID == nil {
		return RoleTeacher
	}
	return RoleStudent
}

// Principal is the resolved acting identity. It is a closed tagged
// variant: the only implementations are Teacher and Student, so
// authorization sites can type-switch exhaustively instead of probing
// nullable fields.
type Principal interface {
	PrincipalID() string
	PrincipalRole() Role
}

// Teacher is a principal that owns classes and students.
type Teacher struct {
	ID string
}

func (t Teacher) PrincipalID() string { return t.ID }
func (t Teacher) PrincipalRole() Role { return RoleTeacher }

// Student is a principal owned by a teacher and assigned to a class.
type Student struct {
	ID        string
	TeacherID string
	ClassID   string
}

func (s Student) PrincipalID() string { return s.ID }
func (s Student) PrincipalRole() Role { return RoleStudent }

// Principal converts a stored user row into its tagged variant.
// Returns false when a student row is missing its ownership links.
func (u *User) Principal() (Principal, bool) {
	if u.TeacherID == nil {
		return Teacher{ID: u.ID}, true
	}
	if u.ClassID == nil {
		return nil, false
	}
	return Student{ID: u.ID, TeacherID: *u.TeacherID, ClassID: *u.ClassID}, true
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
