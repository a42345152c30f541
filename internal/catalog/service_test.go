package catalog

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient/apiclienttest"
	"github.com/angelmondragon/eltafawook-admin/pkg/config"
	"github.com/angelmondragon/eltafawook-admin/pkg/db/models"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const branchesJSON = `[{"id":"b1","code":"BAN","name":"Banha"},{"id":"b2","code":"QAL","name":"Qaliub"}]`

type memoryBranchStore struct {
	saved *session.Branch
}

func (m *memoryBranchStore) Load(context.Context, string) (*models.RememberedSession, error) {
	if m.saved == nil {
		return nil, nil
	}
	return &models.RememberedSession{SavedBranchID: m.saved.ID, SavedBranchCode: m.saved.Code}, nil
}

func (m *memoryBranchStore) SaveBranch(_ context.Context, _ string, b session.Branch) error {
	m.saved = &b
	return nil
}

func signedInSession(t *testing.T, claims jwt.MapClaims) *session.Session {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	sess := session.New(settings.Defaults())
	_, err = sess.SignIn(token)
	require.NoError(t, err)
	return sess
}

func scriptedCatalog() *apiclienttest.Fake {
	return apiclienttest.New().
		On(http.MethodGet, "/branches", http.StatusOK, branchesJSON).
		On(http.MethodGet, "/schools", http.StatusOK, `[{"id":"s1","name":"Banha STEM"}]`).
		On(http.MethodGet, "/items", http.StatusOK, `[{"id":"i1","sku":"BK-1","name":"Book","grade":"3","teacher_id":"t1","default_price_cents":15000}]`).
		On(http.MethodGet, "/teachers", http.StatusOK, `[{"id":"t1","name":"Mr. A","subject":"Physics"}]`).
		On(http.MethodGet, "/kg-items?branch_id=b2", http.StatusOK, `[{"id":"k1","sku":"KG-1","name":"Bag","default_price_cents":5000}]`)
}

func newTestService(t *testing.T, fake *apiclienttest.Fake, sess *session.Session, store branchStore) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		API:      fake,
		Session:  sess,
		Store:    store,
		Branches: config.BranchConfig{DefaultCode: "BAN", KindergartenCode: "QAL"},
	})
	require.NoError(t, err)
	return svc
}

func TestBootstrapAdminDefaultsToBanha(t *testing.T) {
	sess := signedInSession(t, jwt.MapClaims{"sub": "admin", "role": "admin"})
	fake := scriptedCatalog()
	svc := newTestService(t, fake, sess, &memoryBranchStore{})

	snap, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Branches, 2)
	assert.Equal(t, enums.GradeThree, snap.Items[0].Grade)
	assert.Equal(t, "BAN", sess.Branch().Code)
	assert.Empty(t, snap.KGItems)
	assert.Zero(t, fake.CountPrefix("GET /kg-items"))
}

func TestBootstrapAdminPrefersSavedBranchAndLoadsKindergartenItems(t *testing.T) {
	sess := signedInSession(t, jwt.MapClaims{"sub": "admin", "role": "admin"})
	store := &memoryBranchStore{saved: &session.Branch{ID: "b2", Code: "QAL"}}
	svc := newTestService(t, scriptedCatalog(), sess, store)

	snap, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b2", sess.Branch().ID)
	require.Len(t, snap.KGItems, 1)
	assert.Equal(t, "KG-1", snap.KGItems[0].SKU)
}

func TestBootstrapStaffPinnedToTokenBranch(t *testing.T) {
	sess := signedInSession(t, jwt.MapClaims{"sub": "u", "role": "qaliub_staff", "branch_id": "b2"})
	store := &memoryBranchStore{saved: &session.Branch{ID: "b1", Code: "BAN"}}
	svc := newTestService(t, scriptedCatalog(), sess, store)

	_, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "QAL", sess.Branch().Code)
}

func TestBootstrapSourcesFailIndependently(t *testing.T) {
	sess := signedInSession(t, jwt.MapClaims{"sub": "admin", "role": "admin"})
	fake := apiclienttest.New().
		On(http.MethodGet, "/branches", http.StatusOK, branchesJSON).
		On(http.MethodGet, "/schools", http.StatusInternalServerError, `{"detail":"db down"}`).
		OnError(http.MethodGet, "/items", errors.New("connection reset")).
		On(http.MethodGet, "/teachers", http.StatusOK, `[{"id":"t1","name":"Mr. A","subject":"Physics"}]`)
	svc := newTestService(t, fake, sess, nil)

	snap, err := svc.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 2)
	assert.Len(t, snap.Branches, 2)
	assert.Len(t, snap.Teachers, 1)
	assert.Empty(t, snap.Items)
	assert.Equal(t, "BAN", sess.Branch().Code)
}

func TestSwitchBranchRequiresAdmin(t *testing.T) {
	sess := signedInSession(t, jwt.MapClaims{"sub": "u", "role": "banha_staff", "branch_id": "b1"})
	svc := newTestService(t, scriptedCatalog(), sess, nil)
	_, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)

	_, err = svc.SwitchBranch(context.Background(), "b2")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestSwitchBranchRemembersChoice(t *testing.T) {
	sess := signedInSession(t, jwt.MapClaims{"sub": "admin", "role": "admin"})
	store := &memoryBranchStore{}
	svc := newTestService(t, scriptedCatalog(), sess, store)
	_, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)

	branch, err := svc.SwitchBranch(context.Background(), "b2")
	require.NoError(t, err)
	assert.Equal(t, "QAL", branch.Code)
	require.NotNil(t, store.saved)
	assert.Equal(t, "b2", store.saved.ID)
	assert.Len(t, svc.Snapshot().KGItems, 1)

	_, err = svc.SwitchBranch(context.Background(), "missing")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestFilterTeachersBySubjectMatrix(t *testing.T) {
	teachers := []Teacher{
		{ID: "1", Subject: "Physics"},
		{ID: "2", Subject: "Geography"},
		{ID: "3", Subject: "French"},
		{ID: "4", Subject: "Computer Science"},
	}

	got := FilterTeachers(teachers, enums.GradeThree, "Science")
	assert.Equal(t, []string{"1", "3"}, teacherIDs(got))

	got = FilterTeachers(teachers, enums.GradeTwo, enums.SectionLiterature)
	assert.Equal(t, []string{"2", "3"}, teacherIDs(got))

	got = FilterTeachers(teachers, enums.GradeOne, enums.SectionScience)
	assert.Equal(t, []string{"3", "4"}, teacherIDs(got))

	got = FilterTeachers(teachers, enums.GradeUnknown, enums.SectionNone)
	assert.Len(t, got, 4)
}

func TestFilterItemsByTeacherAndGrade(t *testing.T) {
	items := []Item{
		{ID: "a", TeacherID: "t1", Grade: enums.GradeThree},
		{ID: "b", TeacherID: "t1", Grade: enums.GradeTwo},
		{ID: "c", TeacherID: "t2", Grade: enums.GradeThree},
	}
	assert.Len(t, FilterItems(items, "", enums.GradeUnknown), 3)
	assert.Len(t, FilterItems(items, "t1", enums.GradeUnknown), 2)
	got := FilterItems(items, "t1", enums.GradeThree)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func teacherIDs(ts []Teacher) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
