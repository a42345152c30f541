package students

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/angelmondragon/eltafawook-admin/internal/notifications"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient/apiclienttest"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/probe"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc  Service
	fake *apiclienttest.Fake
	sess *session.Session
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u", "role": "admin"}).SignedString([]byte("k"))
	require.NoError(t, err)
	sess := session.New(settings.Defaults())
	_, err = sess.SignIn(token)
	require.NoError(t, err)
	sess.SelectBranch(session.Branch{ID: "b1", Code: "BAN"})

	fake := apiclienttest.New()
	prober, err := probe.New(fake, nil, nil)
	require.NoError(t, err)
	notify, err := notifications.NewService(prober, nil)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{API: fake, Session: sess, Notifications: notify})
	require.NoError(t, err)
	return fixture{svc: svc, fake: fake, sess: sess}
}

func searchKey(field, value string) string {
	return "/students/search?" + field + "=" + url.QueryEscape(value)
}

func TestSearchByPhoneMergesAndDedupes(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodGet, searchKey("phone", "+201001234567"), http.StatusOK, `[{"id":"s1","public_id":1},{"id":"s2","public_id":2}]`).
		On(http.MethodGet, searchKey("parent_phone", "+201001234567"), http.StatusOK, `[{"id":"s2","public_id":2},{"id":"s3","public_id":3}]`)

	rows, err := f.svc.Search(context.Background(), "01001234567")
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids)
}

func TestSearchDispatch(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodGet, searchKey("public_id", "1042"), http.StatusOK, `[{"id":"s1","public_id":1042}]`).
		On(http.MethodGet, searchKey("q", "Omar Adel"), http.StatusOK, `[]`).
		On(http.MethodGet, searchKey("q", "01901234567"), http.StatusOK, `[]`)

	_, err := f.svc.Search(context.Background(), " 1042 ")
	require.NoError(t, err)
	_, err = f.svc.Search(context.Background(), "Omar Adel")
	require.NoError(t, err)
	// phone-shaped but an invalid subscriber prefix: falls through to free text
	_, err = f.svc.Search(context.Background(), "01901234567")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET " + searchKey("public_id", "1042"),
		"GET " + searchKey("q", "Omar Adel"),
		"GET " + searchKey("q", "01901234567"),
	}, f.fake.Keys())
}

func TestGetFallsBackToPublicIDSearch(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodGet, "/students/s1", http.StatusMethodNotAllowed, `{"detail":"Method Not Allowed"}`).
		On(http.MethodGet, searchKey("public_id", "77"), http.StatusOK, `[{"id":"s1","public_id":77,"full_name":"Omar Adel"}]`)

	st, err := f.svc.Get(context.Background(), "s1", 77)
	require.NoError(t, err)
	assert.Equal(t, "Omar Adel", st.FullName)

	_, err = f.svc.Get(context.Background(), "s1", 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCreateValidatesBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	cases := map[string]Input{
		"one word name":  {FullName: "Omar", Phone: "01001234567", SchoolID: "sc1"},
		"bad phone":      {FullName: "Omar Adel", Phone: "0100", SchoolID: "sc1"},
		"bad parent":     {FullName: "Omar Adel", Phone: "01001234567", ParentPhone: "123", SchoolID: "sc1"},
		"no school":      {FullName: "Omar Adel", Phone: "01001234567"},
		"other no name":  {FullName: "Omar Adel", Phone: "01001234567", SchoolID: OtherSchoolID},
		"unknown gender": {FullName: "Omar Adel", Phone: "01001234567", SchoolID: "sc1", Gender: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
	assert.Empty(t, f.fake.Calls())
}

func TestCreateNormalizesAndQueuesWelcomeMessages(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodPost, "/students", http.StatusCreated, `{"id":"s9","public_id":1042,"full_name":"Mona Adel","phone":"+201001234567","parent_phone":"+201101234567","gender":"female","grade":1,"section":"science"}`).
		On(http.MethodPost, "/notifications/wa/enqueue", http.StatusOK, `{"ok":true}`)

	res, err := f.svc.Create(context.Background(), Input{
		FullName:      "  Mona   Adel ",
		Phone:         "0100 123 4567",
		ParentPhone:   "+201101234567",
		SchoolID:      OtherSchoolID,
		NewSchoolName: " New School ",
		Gender:        enums.GenderFemale,
		Grade:         enums.GradeOne,
		Section:       enums.SectionLiterature,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queued)
	assert.Empty(t, res.Warnings)

	call, ok := f.fake.Last(http.MethodPost, "/students")
	require.True(t, ok)
	body := call.Body.(map[string]any)
	assert.Equal(t, "Mona Adel", body["full_name"])
	assert.Equal(t, "+201001234567", body["phone"])
	assert.Equal(t, "science", body["section"])
	assert.Nil(t, body["school_id"])
	assert.Equal(t, "New School", body["new_school_name"])
	assert.Equal(t, "b1", body["branch_id"])

	msgs := 0
	for _, c := range f.fake.Calls() {
		if c.Path != "/notifications/wa/enqueue" {
			continue
		}
		msgs++
		m := c.Body.(map[string]any)
		assert.Contains(t, m["message"], "Mona Adel")
		assert.Contains(t, m["message"], "1042")
	}
	assert.Equal(t, 2, msgs)

	id, err := f.svc.PublicID(context.Background(), "s9")
	require.NoError(t, err)
	assert.EqualValues(t, 1042, id)
}

func TestCreateReportsMessageFailureAsWarning(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodPost, "/students", http.StatusCreated, `{"id":"s9","public_id":5,"full_name":"Omar Adel","phone":"+201001234567","gender":"male"}`).
		On(http.MethodPost, "/notifications/wa/enqueue", http.StatusBadGateway, `{"detail":"gateway down"}`)

	res, err := f.svc.Create(context.Background(), Input{FullName: "Omar Adel", Phone: "01001234567", SchoolID: "sc1"})
	require.NoError(t, err)
	assert.Zero(t, res.Queued)
	require.Len(t, res.Warnings, 1)
	assert.True(t, strings.Contains(res.Warnings[0], "gateway down"))
}

func TestUpdateSendsNormalizedBody(t *testing.T) {
	f := newFixture(t)
	f.fake.On(http.MethodPut, "/students/s1", http.StatusOK, `{"id":"s1","public_id":3,"full_name":"Omar Adel"}`)

	st, err := f.svc.Update(context.Background(), "s1", Input{FullName: "Omar Adel", Phone: "201001234567"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.PublicID)
	call, _ := f.fake.Last(http.MethodPut, "/students/s1")
	assert.Equal(t, "+201001234567", call.Body.(map[string]any)["phone"])
	assert.Nil(t, call.Body.(map[string]any)["parent_phone"])
}

func TestPublicIDCachesLookups(t *testing.T) {
	f := newFixture(t)
	f.fake.
		On(http.MethodGet, "/students/s4", http.StatusNotFound, `{"detail":"Not Found"}`).
		On(http.MethodGet, "/students/search?id=s4&limit=1", http.StatusOK, `[{"id":"s4","public_id":404}]`)

	for i := 0; i < 3; i++ {
		id, err := f.svc.PublicID(context.Background(), "s4")
		require.NoError(t, err)
		assert.EqualValues(t, 404, id)
	}
	assert.Equal(t, 1, f.fake.Count(http.MethodGet, "/students/s4"))
}

func TestSearchRequiresSession(t *testing.T) {
	f := newFixture(t)
	f.sess.Logout()
	_, err := f.svc.Search(context.Background(), "Omar")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
