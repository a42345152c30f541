package settings

import (
	"context"
	"testing"

	"github.com/angelmondragon/eltafawook-admin/pkg/db"
	"github.com/angelmondragon/eltafawook-admin/pkg/db/models"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	conn, err := db.Open(sqlite.Open("file::memory:"))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.OperatorSetting{}))

	repo := NewRepository(conn)
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestLoadReturnsDefaultsWhenEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestLoadMigratesLegacyGroupLink(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, waSettingsKey, `{"group_link":"https://chat.whatsapp.com/legacy","male_student_join_tpl":"hi {{student_name}}"}`))

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://chat.whatsapp.com/legacy", got.GroupLinkMale)
	assert.Equal(t, "https://chat.whatsapp.com/legacy", got.GroupLinkFemale)
	assert.Equal(t, "hi {{student_name}}", got.MaleStudentJoinTpl)
	assert.Equal(t, Defaults().FemaleParentWelcomeTpl, got.FemaleParentWelcomeTpl)
}

func TestLoadPrefersGenderedLinksOverLegacy(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, waSettingsKey, `{"group_link":"L","group_link_female":"F"}`))

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "L", got.GroupLinkMale)
	assert.Equal(t, "F", got.GroupLinkFemale)
}

func TestLoadFallsBackOnCorruptDocument(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, waSettingsKey, `{not json`))

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestSaveRoundTripsAndOverwrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := Defaults()
	in.GroupLinkMale = "M1"
	_, err := svc.Save(ctx, in)
	require.NoError(t, err)

	in.GroupLinkMale = "M2"
	in.MaleParentWelcomeTpl = ""
	saved, err := svc.Save(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, Defaults().MaleParentWelcomeTpl, saved.MaleParentWelcomeTpl)

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "M2", got.GroupLinkMale)
}

func TestRender(t *testing.T) {
	out := Render("Hi {{student_name}}, id {{ student_id }} {{missing}}!", map[string]string{
		"student_name": "Omar Adel",
		"student_id":   "1042",
	})
	assert.Equal(t, "Hi Omar Adel, id 1042 !", out)
}

func TestGenderedAccessors(t *testing.T) {
	s := Defaults()
	assert.Equal(t, s.GroupLinkFemale, s.GroupLink(enums.GenderFemale))
	assert.Equal(t, s.MaleStudentJoinTpl, s.StudentJoinTemplate(enums.GenderMale))
	assert.Equal(t, s.FemaleParentWelcomeTpl, s.ParentWelcomeTemplate(enums.GenderFemale))
}

func TestGroupLinkFallsBackToOtherGender(t *testing.T) {
	s := WASettings{GroupLinkMale: "https://chat.whatsapp.com/male"}
	assert.Equal(t, "https://chat.whatsapp.com/male", s.GroupLink(enums.GenderFemale))
}
