package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload carries the staff identity minted into a token.
type AccessTokenPayload struct {
	StaffID   uint
	StaffName string
	IsAdmin   bool
	JTI       string
}

// AccessTokenClaims is the JWT claim set for a staff session.
type AccessTokenClaims struct {
	StaffID   uint   `json:"staff_id"`
	StaffName string `json:"staff_name"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}
