package session

import (
	"sync"

	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/pkg/auth"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
)

// Branch identifies the branch the operator is working in.
type Branch struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// Session is the operator's application context: token, decoded claims,
// selected branch and message settings. It is created at startup, mutated
// only through its setters and cleared by Logout.
type Session struct {
	mu        sync.RWMutex
	token     string
	claims    *auth.AccessTokenClaims
	branch    Branch
	wa        settings.WASettings
	listeners []func(Branch)
}

func New(wa settings.WASettings) *Session {
	return &Session{wa: wa}
}

// SignIn stores token and its decoded claims.
func (s *Session) SignIn(token string) (*auth.AccessTokenClaims, error) {
	claims, err := auth.DecodeAccessToken(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()
	return claims, nil
}

// Token returns the bearer token, "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Claims returns a copy of the decoded claims, nil when signed out.
func (s *Session) Claims() *auth.AccessTokenClaims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return nil
	}
	c := *s.claims
	return &c
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.IsAdmin()
}

// SelectBranch switches the working branch. Listeners run only on an actual change.
func (s *Session) SelectBranch(b Branch) {
	s.mu.Lock()
	changed := s.branch.ID != b.ID || s.branch.Code != b.Code
	s.branch = b
	listeners := append([]func(Branch){}, s.listeners...)
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(b)
		}
	}
}

func (s *Session) Branch() Branch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.branch
}

// OnBranchChange registers fn to run after the branch changes (including logout).
func (s *Session) OnBranchChange(fn func(Branch)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) SetWASettings(wa settings.WASettings) {
	s.mu.Lock()
	s.wa = wa
	s.mu.Unlock()
}

func (s *Session) WASettings() settings.WASettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wa
}

// Logout clears the token, claims and branch. Settings survive.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()
	s.SelectBranch(Branch{})
}

// RequireToken returns the token or a CodeUnauthorized error when signed out.
func (s *Session) RequireToken() (string, error) {
	token := s.Token()
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return token, nil
}
