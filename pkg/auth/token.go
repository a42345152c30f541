package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errEmptyToken = errors.New("access token is empty")

// DecodeAccessToken reads the claims of a token without verifying its
// signature. The signing secret lives on the remote API, which verifies
// the token on every request; the client only needs role and branch.
func DecodeAccessToken(tokenString string) (*AccessTokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, errEmptyToken
	}

	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("decoding access token: %w", err)
	}
	return claims, nil
}
