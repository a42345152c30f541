package auth

import (
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
)

// LoginRequest captures the operator credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

// LoginResponse describes the signed-in operator and the loaded reference data.
type LoginResponse struct {
	// AccessToken is set on login only; clients send it back as a bearer token.
	AccessToken string           `json:"access_token,omitempty"`
	Username    string           `json:"username"`
	Role        enums.UserRole   `json:"role"`
	Branch      session.Branch   `json:"branch"`
	Catalog     catalog.Snapshot `json:"catalog"`
	// Warnings lists reference data that failed to load.
	Warnings []string `json:"warnings,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
