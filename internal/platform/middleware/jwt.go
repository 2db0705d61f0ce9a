package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACValidator validates HS256 tokens minted by the surrounding
// application's auth layer. Only the claims this core consumes are read.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey)}
}

func (v *HMACValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("token missing subject")
	}
	role, _ := claims["role"].(string)
	return &JWTClaims{AccountID: sub, Role: role}, nil
}
