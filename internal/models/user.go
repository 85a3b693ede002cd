package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Identity is the acting user resolved by the authorization guard.
type Identity struct {
	ID       string
	Username string
	Role     string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func IdentityOf(u User) Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}
