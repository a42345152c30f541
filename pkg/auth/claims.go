package auth

import (
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims is the payload of the token issued by POST /auth/token.
// The subject is the operator's username.
type AccessTokenClaims struct {
	Role     enums.UserRole `json:"role"`
	BranchID *string        `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token grants the admin role.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.UserRoleAdmin
}

// Branch returns the branch the operator is pinned to, "" for none.
func (c *AccessTokenClaims) Branch() string {
	if c == nil || c.BranchID == nil {
		return ""
	}
	return *c.BranchID
}
