package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// UserStatus captures whether an account may use the portal.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

// User represents a portal account. Students carry the class they belong to.
type User struct {
	ID        string     `db:"id" bson:"_id" json:"id"`
	UID       string     `db:"uid" bson:"uid" json:"uid,omitempty"`
	Name      string     `db:"name" bson:"name" json:"name"`
	Email     string     `db:"email" bson:"email" json:"email"`
	Role      UserRole   `db:"role" bson:"role" json:"role"`
	ClassID   string     `db:"class_id" bson:"classId" json:"classId,omitempty"`
	Status    UserStatus `db:"status" bson:"status" json:"status"`
	CreatedAt *time.Time `db:"created_at" bson:"createdAt" json:"createdAt,omitempty"`
}

// IsStudent reports whether the account takes part in student reporting.
func (u User) IsStudent() bool {
	return u.Role == RoleStudent && u.Status != UserStatusBanned
}

// DisplayName returns the best available human readable name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if local, _, found := strings.Cut(u.Email, "@"); found {
		return local
	}
	return u.Email
}
