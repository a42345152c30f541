package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/config"
	"github.com/angelmondragon/eltafawook-admin/pkg/db/models"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Service loads and serves the reference data of the signed-in operator.
type Service interface {
	Bootstrap(ctx context.Context) (Snapshot, error)
	SwitchBranch(ctx context.Context, branchID string) (session.Branch, error)
	Snapshot() Snapshot
	Item(id string) (Item, bool)
	ItemsFor(teacherID string, grade enums.Grade) []Item
	TeachersFor(grade enums.Grade, section enums.Section) []Teacher
	Clear()
}

type branchStore interface {
	Load(ctx context.Context, profile string) (*models.RememberedSession, error)
	SaveBranch(ctx context.Context, profile string, branch session.Branch) error
}

// ServiceParams bundles the catalog dependencies. Store and Logger are optional.
type ServiceParams struct {
	API      apiclient.Doer
	Session  *session.Session
	Store    branchStore
	Branches config.BranchConfig
	Logger   *logger.Logger
}

type service struct {
	api      apiclient.Doer
	sess     *session.Session
	store    branchStore
	branches config.BranchConfig
	logg     *logger.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("api client required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		api:      params.API,
		sess:     params.Session,
		store:    params.Store,
		branches: params.Branches,
		logg:     params.Logger,
	}, nil
}

// Bootstrap loads branches, schools, items and teachers concurrently, picks
// the working branch and, for the kindergarten branch, its items. Sources
// fail independently: the snapshot holds whatever loaded and the error
// aggregates the rest.
func (s *service) Bootstrap(ctx context.Context) (Snapshot, error) {
	token, err := s.sess.RequireToken()
	if err != nil {
		return Snapshot{}, err
	}

	var (
		snap Snapshot
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(ctx)
	load := func(source, path string, dst any) {
		g.Go(func() error {
			if err := s.fetch(gctx, token, path, dst); err != nil {
				s.logg.Warn(s.logg.WithFields(gctx, map[string]any{"source": source, "error": err.Error()}), "reference data load failed")
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("load %s: %w", source, err))
				mu.Unlock()
			}
			return nil
		})
	}
	load("branches", "/branches", &snap.Branches)
	load("schools", "/schools", &snap.Schools)
	load("items", "/items", &snap.Items)
	load("teachers", "/teachers", &snap.Teachers)
	_ = g.Wait()

	branch := s.pickBranch(ctx, snap.Branches)
	s.sess.SelectBranch(toSession(branch))
	if s.isKindergarten(branch) {
		if err := s.fetch(ctx, token, "/kg-items?branch_id="+url.QueryEscape(branch.ID), &snap.KGItems); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("load kg items: %w", err))
		}
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	if errs != nil {
		return snap, partialLoadError(errs)
	}
	s.logg.Info(s.logg.WithBranch(ctx, branch.Code), "reference data loaded")
	return snap, nil
}

// SwitchBranch moves an admin to another branch and remembers the choice.
func (s *service) SwitchBranch(ctx context.Context, branchID string) (session.Branch, error) {
	if !s.sess.IsAdmin() {
		return session.Branch{}, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can switch branches")
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return session.Branch{}, err
	}

	s.mu.RLock()
	branch, ok := findBranch(s.snap.Branches, func(b Branch) bool { return b.ID == branchID })
	s.mu.RUnlock()
	if !ok {
		return session.Branch{}, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
	}

	selected := toSession(branch)
	s.sess.SelectBranch(selected)
	if s.store != nil {
		if err := s.store.SaveBranch(ctx, session.DefaultProfile, selected); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to remember branch")
		}
	}

	var kg []KGItem
	if s.isKindergarten(branch) {
		if err := s.fetch(ctx, token, "/kg-items?branch_id="+url.QueryEscape(branch.ID), &kg); err != nil {
			return selected, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load kindergarten items").WithTitle("Failed to load items")
		}
	}
	s.mu.Lock()
	s.snap.KGItems = kg
	s.mu.Unlock()
	return selected, nil
}

func (s *service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Branches: append([]Branch(nil), s.snap.Branches...),
		Schools:  append([]School(nil), s.snap.Schools...),
		Items:    append([]Item(nil), s.snap.Items...),
		Teachers: append([]Teacher(nil), s.snap.Teachers...),
		KGItems:  append([]KGItem(nil), s.snap.KGItems...),
	}
}

func (s *service) Item(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.snap.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func (s *service) ItemsFor(teacherID string, grade enums.Grade) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterItems(s.snap.Items, teacherID, grade)
}

func (s *service) TeachersFor(grade enums.Grade, section enums.Section) []Teacher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Teacher(nil), FilterTeachers(s.snap.Teachers, grade, section)...)
}

// Clear drops the snapshot on sign-out.
func (s *service) Clear() {
	s.mu.Lock()
	s.snap = Snapshot{}
	s.mu.Unlock()
}

func (s *service) fetch(ctx context.Context, token, path string, dst any) error {
	body, err := s.api.Do(ctx, path, apiclient.RequestOptions{Method: http.MethodGet, AuthToken: token})
	if err != nil {
		return err
	}
	return body.Decode(dst)
}

// pickBranch: admins get their saved branch, else the default code, else the
// first branch; everyone else is pinned to the token's branch_id.
func (s *service) pickBranch(ctx context.Context, branches []Branch) Branch {
	claims := s.sess.Claims()
	if !claims.IsAdmin() {
		id := claims.Branch()
		if b, ok := findBranch(branches, func(b Branch) bool { return b.ID == id }); ok {
			return b
		}
		return Branch{ID: id}
	}

	if saved := s.savedBranchID(ctx); saved != "" {
		if b, ok := findBranch(branches, func(b Branch) bool { return b.ID == saved }); ok {
			return b
		}
	}
	if b, ok := findBranch(branches, func(b Branch) bool { return strings.EqualFold(b.Code, s.branches.DefaultCode) }); ok {
		return b
	}
	if len(branches) > 0 {
		return branches[0]
	}
	return Branch{}
}

func (s *service) savedBranchID(ctx context.Context) string {
	if s.store == nil {
		return ""
	}
	row, err := s.store.Load(ctx, session.DefaultProfile)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to read saved branch")
		return ""
	}
	if row == nil {
		return ""
	}
	return row.SavedBranchID
}

func (s *service) isKindergarten(b Branch) bool {
	return b.ID != "" && s.branches.KindergartenCode != "" && strings.EqualFold(b.Code, s.branches.KindergartenCode)
}

func partialLoadError(errs error) error {
	all := multierr.Errors(errs)
	details := make([]string, 0, len(all))
	for _, e := range all {
		details = append(details, e.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "some reference data failed to load").
		WithTitle("Partial load").
		WithDetails(details)
}

func findBranch(branches []Branch, match func(Branch) bool) (Branch, bool) {
	for _, b := range branches {
		if match(b) {
			return b, true
		}
	}
	return Branch{}, false
}

func toSession(b Branch) session.Branch {
	return session.Branch{ID: b.ID, Code: b.Code, Name: b.Name}
}
