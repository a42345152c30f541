package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("remote-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestDecodeAccessToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := mint(t, jwt.MapClaims{
		"sub":       "mona",
		"role":      "banha_staff",
		"branch_id": "b-1",
		"exp":       exp,
	})

	claims, err := DecodeAccessToken(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Subject != "mona" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Role != enums.UserRoleBanhaStaff || claims.IsAdmin() {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.Branch() != "b-1" {
		t.Fatalf("unexpected branch %q", claims.Branch())
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() != exp {
		t.Fatalf("expiry not preserved")
	}
}

func TestDecodeAccessTokenAdminWithoutBranch(t *testing.T) {
	claims, err := DecodeAccessToken(mint(t, jwt.MapClaims{"sub": "root", "role": "admin", "branch_id": nil}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !claims.IsAdmin() {
		t.Fatalf("expected admin")
	}
	if claims.Branch() != "" {
		t.Fatalf("expected no branch, got %q", claims.Branch())
	}
}

func TestDecodeAccessTokenRejectsGarbage(t *testing.T) {
	if _, err := DecodeAccessToken(""); err == nil {
		t.Fatalf("expected empty token error")
	}
	if _, err := DecodeAccessToken("not-a-jwt"); err == nil {
		t.Fatalf("expected malformed token error")
	}
}
