package token

import "github.com/golang-jwt/jwt/v5"

// Claims embedded in every signed session token.
type Claims struct {
	AccountID int64  `json:"userId"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}
