package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Username     string     `gorm:"type:varchar(30);uniqueIndex;not null" bson:"username" json:"username"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" bson:"password_hash" json:"-"`
	FirstName    string     `gorm:"type:varchar(50)" bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName     string     `gorm:"type:varchar(50)" bson:"last_name,omitempty" json:"lastName,omitempty"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:'user'" bson:"role" json:"role"`
	IsActive     bool       `gorm:"not null;default:true;index" bson:"is_active" json:"isActive"`
	LastLogin    *time.Time `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `gorm:"index" bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	if len(parts) == 0 {
		return u.Username
	}
	return strings.Join(parts, " ")
}
