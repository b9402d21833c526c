package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// ActorClaim identifies the caller. Kind is "system" for accounts of the identity
// service and "legacy" for name-only actors imported from older records.
type ActorClaim struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
	jwt.StandardClaims
}

func JwtGenerate(secret string, kind string, ref string, lifespan time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("API_SECRET is required")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &ActorClaim{
		Kind: kind,
		Ref:  ref,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(lifespan).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})
	return t.SignedString([]byte(secret))
}

func JwtValidate(secret string, token string) (*ActorClaim, error) {
	if secret == "" {
		return nil, errors.New("API_SECRET is required")
	}
	parsed, err := jwt.ParseWithClaims(token, &ActorClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*ActorClaim)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claim, nil
}
