package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// Claims is the JWT payload issued to a logged-in manager.
type Claims struct {
	ManagerID string `json:"manager_id"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// GenerateJWT signs a token for the given manager.
func GenerateJWT(managerID utils.SixID, isAdmin bool, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ManagerID: managerID.String(),
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   managerID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// ValidateJWT parses and verifies a token string.
func ValidateJWT(tokenString, secretKey string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
