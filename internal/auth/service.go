package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

const (
	tokenPath                 = "/auth/token"
	invalidCredentialsMessage = "incorrect username or password"
	loginFailedTitle          = "Login failed"
)

// Service signs the operator in and out.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Restore(ctx context.Context) (*LoginResponse, bool, error)
	Resume(ctx context.Context, token string) (*LoginResponse, error)
	Logout(ctx context.Context) error
}

type bootstrapper interface {
	Bootstrap(ctx context.Context) (catalog.Snapshot, error)
	Clear()
}

type rememberStore interface {
	Load(ctx context.Context, profile string) (*models.RememberedSession, error)
	SaveToken(ctx context.Context, profile, username, token string) error
	ForgetToken(ctx context.Context, profile string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	API      apiclient.Doer
	Session  *session.Session
	Catalog  bootstrapper
	Remember rememberStore
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	api      apiclient.Doer
	sess     *session.Session
	catalog  bootstrapper
	remember rememberStore
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		api:      params.API,
		sess:     params.Session,
		catalog:  params.Catalog,
		remember: params.Remember,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

// Login exchanges credentials for an access token. Every remote failure is
// reported as incorrect credentials; the cause stays in the chain for logs.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required").WithTitle(loginFailedTitle)
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", req.Password)
	body, err := s.api.Do(ctx, tokenPath, apiclient.RequestOptions{Method: http.MethodPost, Form: form})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "username", username), "login rejected")
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidCredentialsMessage).WithTitle(loginFailedTitle)
	}

	var tok tokenResponse
	if err := body.Decode(&tok); err != nil || tok.AccessToken == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "login response did not include an access token").WithTitle(loginFailedTitle)
	}

	if _, err := s.sess.SignIn(tok.AccessToken); err != nil {
		return nil, err
	}

	if s.remember != nil {
		var rerr error
		if req.Remember {
			rerr = s.remember.SaveToken(ctx, session.DefaultProfile, username, tok.AccessToken)
		} else {
			rerr = s.remember.ForgetToken(ctx, session.DefaultProfile)
		}
		if rerr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", rerr.Error()), "failed to update remembered session")
		}
	}

	s.logg.Info(s.logg.WithField(ctx, "username", username), "operator signed in")
	resp := s.bootstrap(ctx, username)
	resp.AccessToken = tok.AccessToken
	return resp, nil
}

// Restore signs in with a remembered, unexpired token. ok is false when there is none.
func (s *service) Restore(ctx context.Context) (*LoginResponse, bool, error) {
	if s.remember == nil {
		return nil, false, nil
	}
	row, err := s.remember.Load(ctx, session.DefaultProfile)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load remembered session")
	}
	if row == nil || row.AccessToken == "" {
		return nil, false, nil
	}
	resp, err := s.restore(ctx, row)
	return resp, resp != nil, err
}

// Resume re-attaches a client holding the remembered token. Any other token is
// rejected before the session is touched.
func (s *service) Resume(ctx context.Context, token string) (*LoginResponse, error) {
	unauthorized := pkgerrors.New(pkgerrors.CodeUnauthorized, "no remembered session for this token")
	if token == "" {
		return nil, unauthorized
	}
	if current := s.sess.Token(); current != "" && subtle.ConstantTimeCompare([]byte(current), []byte(token)) == 1 {
		return s.bootstrap(ctx, ""), nil
	}
	if s.remember == nil {
		return nil, unauthorized
	}
	row, err := s.remember.Load(ctx, session.DefaultProfile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load remembered session")
	}
	if row == nil || subtle.ConstantTimeCompare([]byte(row.AccessToken), []byte(token)) != 1 {
		return nil, unauthorized
	}
	resp, err := s.restore(ctx, row)
	if err == nil && resp == nil {
		err = pkgerrors.New(pkgerrors.CodeUnauthorized, "remembered token expired")
	}
	return resp, err
}

// restore signs in with row's token; a nil response means the token was discarded.
func (s *service) restore(ctx context.Context, row *models.RememberedSession) (*LoginResponse, error) {
	claims, err := s.sess.SignIn(row.AccessToken)
	if err == nil && claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now()) {
		err = pkgerrors.New(pkgerrors.CodeUnauthorized, "remembered token expired")
	}
	if err != nil {
		s.sess.Logout()
		if ferr := s.remember.ForgetToken(ctx, session.DefaultProfile); ferr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", ferr.Error()), "failed to forget stale token")
		}
		s.logg.Info(ctx, "remembered token discarded")
		return nil, nil
	}

	username := row.Username
	if username == "" {
		username = claims.Subject
	}
	return s.bootstrap(ctx, username), nil
}

// Logout clears the session, the reference data and any remembered token.
func (s *service) Logout(ctx context.Context) error {
	s.sess.Logout()
	s.catalog.Clear()
	if s.remember != nil {
		if err := s.remember.ForgetToken(ctx, session.DefaultProfile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "forget remembered token")
		}
	}
	s.logg.Info(ctx, "operator signed out")
	return nil
}

func (s *service) bootstrap(ctx context.Context, username string) *LoginResponse {
	snap, err := s.catalog.Bootstrap(ctx)
	resp := &LoginResponse{
		Username: username,
		Branch:   s.sess.Branch(),
		Catalog:  snap,
	}
	if claims := s.sess.Claims(); claims != nil {
		resp.Role = claims.Role
		if resp.Username == "" {
			resp.Username = claims.Subject
		}
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog bootstrap incomplete")
		if details, ok := pkgerrors.As(err).Details().([]string); ok {
			resp.Warnings = details
		} else {
			resp.Warnings = []string{err.Error()}
		}
	}
	return resp
}
