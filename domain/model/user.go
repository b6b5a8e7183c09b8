package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserClaims is the JWT payload; Issuer carries the user id.
type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name"`
}
