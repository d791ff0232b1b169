package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func secretKey() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("storefront-dev-secret")
}

// GenerateToken creates a JWT for a member. The group IDs ride along in the
// claims because protected products are filtered by group membership.
func GenerateToken(memberID int64, groups []int64) (string, error) {
	claims := jwt.MapClaims{
		"sub":    memberID,
		"groups": groups,
		"exp":    time.Now().Add(time.Hour * 72).Unix(),
		"iat":    time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateToken parses a token and returns the member ID and group IDs.
func ValidateToken(tokenString string) (int64, []int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
	if err != nil {
		return 0, nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, nil, errors.New("invalid token")
	}

	memberIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, nil, errors.New("invalid subject claim")
	}

	var groups []int64
	if raw, ok := claims["groups"].([]interface{}); ok {
		for _, g := range raw {
			if f, ok := g.(float64); ok {
				groups = append(groups, int64(f))
			}
		}
	}

	return int64(memberIDFloat), groups, nil
}
