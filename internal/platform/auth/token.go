package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// tokenTTL is how long an issued credential stays valid.
const tokenTTL = 6 * time.Hour

// Claims carries the authenticated subject id and role inside a signed token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
}

// TokenIssuer signs time-limited credentials for a (subject id, role) pair.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
}

func NewTokenIssuer(secret []byte, issuer, audience string) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, audience: audience}
}

// Issue creates a signed HMAC token for the given subject id and role.
func (i *TokenIssuer) Issue(userID int64, role string) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("user id must be positive, got %d", userID)
	}
	if role != RolePatient && role != RoleDoctor {
		return "", fmt.Errorf("invalid role: %s", role)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
