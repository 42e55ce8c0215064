package dto

import (
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
)

// UserDTO is the full profile returned to the account owner
type UserDTO struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	FullName  string          `json:"fullName"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"isActive"`
	LastLogin *time.Time      `json:"lastLogin,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// UserSummaryDTO is the minimal projection used in lists and populated references
type UserSummaryDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	FullName  string `json:"fullName"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName(),
		Role:      user.Role,
		IsActive:  user.IsActive,
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName(),
	}
}

func ToUserSummaryDTOs(users []models.User) []UserSummaryDTO {
	items := make([]UserSummaryDTO, len(users))
	for i, u := range users {
		items[i] = ToUserSummaryDTO(u)
	}
	return items
}
