package model

import "time"

type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	FullName      *string    `json:"fullName"`
	IsActive      bool       `json:"isActive"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"fullName,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string  `json:"token"`
	Email    string  `json:"email"`
	FullName *string `json:"fullName"`
	UserID   int64   `json:"userId"`
}

// Profile is the minimal identity kept next to the token between runs.
type Profile struct {
	UserID   int64   `json:"userId"`
	Email    string  `json:"email"`
	FullName *string `json:"fullName"`
}
