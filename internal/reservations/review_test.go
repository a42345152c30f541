package reservations

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func TestEnrich(t *testing.T) {
	r := Reservation{
		ID: "r1", StudentID: "s1", SKU: "PHY", ItemGrade: 3, Qty: 2,
		UnitPriceCents: 100, UnitPriceCentsEffective: int64p(80), PrepaidCents: 50,
	}
	e := Enrich(r)
	assert.EqualValues(t, 80, e.Unit)
	assert.EqualValues(t, 160, e.Total)
	assert.EqualValues(t, 110, e.Remaining)
	assert.Equal(t, "-", e.TeacherLabel)
	assert.Equal(t, "PHY (Grade 3)", e.ItemLabel)
	assert.Equal(t, "s1", e.StudentPublicNo)

	r.TotalCents = 40
	r.ItemName = "Physics"
	r.StudentPublicID = []byte(`1042`)
	e = Enrich(r)
	assert.EqualValues(t, 0, e.Remaining)
	assert.Equal(t, "Physics (Grade 3)", e.ItemLabel)
	assert.Equal(t, "1042", e.StudentPublicNo)
}

func TestAggregateGroupsByTeacherAndItem(t *testing.T) {
	rows := []Enriched{
		Enrich(Reservation{TeacherName: "Adel", ItemName: "Physics", ItemGrade: 3, Qty: 1, UnitPriceCents: 100}),
		Enrich(Reservation{ItemName: "Chem", ItemGrade: 2, Qty: 2, UnitPriceCents: 50}),
		Enrich(Reservation{TeacherName: "Adel", ItemName: "Physics", ItemGrade: 3, Qty: 3, UnitPriceCents: 100, PrepaidCents: 100}),
	}
	assert.Equal(t, []AggregateRow{
		{Teacher: "Adel", Item: "Physics (Grade 3)", Qty: 4, TotalRemainingCents: 300},
		{Teacher: "-", Item: "Chem (Grade 2)", Qty: 2, TotalRemainingCents: 100},
	}, Aggregate(rows))
}

func TestOpenForStudentDropsClosed(t *testing.T) {
	f := newFixture(t)
	f.fake.On(http.MethodGet, "/reservations/search?limit=200&student_id=s1", http.StatusOK,
		`[{"id":"a","status":"hold"},{"id":"b","status":"FULFILLED"},{"id":"c","status":"cancelled"},{"id":"d","status":"queued"}]`)

	rows, err := f.svc.OpenForStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "d", rows[1].ID)
}

func TestOpenAllUsesWideLimit(t *testing.T) {
	f := newFixture(t)
	f.fake.On(http.MethodGet, "/reservations/search?limit=500", http.StatusOK, `[{"id":"a","status":"active"}]`)

	rows, err := f.svc.OpenAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTodaysFulfilled(t *testing.T) {
	f := newFixture(t)
	f.fake.On(http.MethodGet, "/reservations/search?limit=250", http.StatusOK, `[
		{"id":"a","status":"fulfilled","student_id":"s9","updated_at":"2026-03-14 09:30:00"},
		{"id":"b","status":"hold","fulfilled_at":"2026-03-14T08:00:00Z","student_id":"s1","created_at":"2026-03-14T08:00:00Z"},
		{"id":"c","status":"fulfilled","student_id":"s1","updated_at":"2026-03-13T23:59:00Z"},
		{"id":"d","status":"hold","student_id":"s1","updated_at":"2026-03-14T10:00:00Z"},
		{"id":"e","status":"fulfilled","student_id":"s1"}
	]`)

	rows, err := f.svc.TodaysFulfilled(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "1042", rows[0].StudentPublicNo)
	assert.Equal(t, "b", rows[1].ID)
	assert.Equal(t, "s1", rows[1].StudentPublicNo)
}

func TestParseTimestamp(t *testing.T) {
	cairo := time.FixedZone("EET", 2*60*60)
	got, ok := parseTimestamp("2026-03-14 23:30:00", cairo)
	require.True(t, ok)
	assert.Equal(t, 14, got.Day())

	got, ok = parseTimestamp("2026-03-14T22:30:00Z", cairo)
	require.True(t, ok)
	assert.Equal(t, 15, got.Day())

	_, ok = parseTimestamp("yesterday", cairo)
	assert.False(t, ok)
}
