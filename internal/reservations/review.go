package reservations

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
)

const (
	studentSearchLimit = 200
	openSearchLimit    = 500
	todaySearchLimit   = 250
	publicIDWorkers    = 8
	unknownTeacher     = "-"
)

// Enriched is a reservation with the money columns the review screens show.
type Enriched struct {
	Reservation
	Unit            int64  `json:"unit_cents"`
	Paid            int64  `json:"paid_cents"`
	Total           int64  `json:"total_cents_computed"`
	Remaining       int64  `json:"remaining_cents"`
	TeacherLabel    string `json:"teacher_label"`
	ItemLabel       string `json:"item_label"`
	StudentPublicNo string `json:"student_public_no"`
}

// AggregateRow sums open reservations per teacher and item.
type AggregateRow struct {
	Teacher             string `json:"teacher"`
	Item                string `json:"item"`
	Qty                 int    `json:"qty"`
	TotalRemainingCents int64  `json:"total_remaining_cents"`
}

// Enrich derives unit, total and remaining amounts. The effective unit
// price wins; an explicit total wins over unit*qty.
func Enrich(r Reservation) Enriched {
	unit := r.UnitPriceCents
	if r.UnitPriceCentsEffective != nil {
		unit = *r.UnitPriceCentsEffective
	}
	total := r.TotalCents
	if total == 0 {
		total = unit * int64(r.Qty)
	}
	remaining := total - r.PrepaidCents
	if remaining < 0 {
		remaining = 0
	}
	teacher := strings.TrimSpace(r.TeacherName)
	if teacher == "" {
		teacher = unknownTeacher
	}
	name := r.ItemName
	if name == "" {
		name = r.SKU
	}
	publicNo := r.publicIDString()
	if publicNo == "" {
		publicNo = r.StudentID
	}
	return Enriched{
		Reservation:     r,
		Unit:            unit,
		Paid:            r.PrepaidCents,
		Total:           total,
		Remaining:       remaining,
		TeacherLabel:    teacher,
		ItemLabel:       name + " (Grade " + strconv.Itoa(int(r.ItemGrade)) + ")",
		StudentPublicNo: publicNo,
	}
}

// Aggregate groups rows by "teacher | item", keeping first-seen order.
func Aggregate(rows []Enriched) []AggregateRow {
	index := make(map[string]int)
	out := make([]AggregateRow, 0)
	for _, r := range rows {
		key := r.TeacherLabel + " | " + r.ItemLabel
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, AggregateRow{Teacher: r.TeacherLabel, Item: r.ItemLabel})
		}
		out[i].Qty += r.Qty
		out[i].TotalRemainingCents += r.Remaining
	}
	return out
}

func (s *service) OpenForStudent(ctx context.Context, studentID string) ([]Enriched, error) {
	if studentID == "" {
		return nil, nil
	}
	q := url.Values{"student_id": {studentID}, "limit": {strconv.Itoa(studentSearchLimit)}}
	return s.open(ctx, "/reservations/search?"+q.Encode())
}

func (s *service) OpenAll(ctx context.Context) ([]Enriched, error) {
	return s.open(ctx, "/reservations/search?limit="+strconv.Itoa(openSearchLimit))
}

func (s *service) open(ctx context.Context, path string) ([]Enriched, error) {
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}
	rows, err := s.list(ctx, token, path)
	if err != nil {
		return nil, err
	}
	out := make([]Enriched, 0, len(rows))
	for _, r := range rows {
		status := enums.ReservationStatus(strings.ToLower(strings.TrimSpace(r.Status)))
		if !status.IsOpen() {
			continue
		}
		out = append(out, Enrich(r))
	}
	return out, nil
}

// TodaysFulfilled lists reservations fulfilled today, judged by their last
// update in the service location, each with the student's public number.
func (s *service) TodaysFulfilled(ctx context.Context) ([]Enriched, error) {
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}
	rows, err := s.list(ctx, token, "/reservations/search?limit="+strconv.Itoa(todaySearchLimit))
	if err != nil {
		return nil, err
	}

	today := s.now().In(s.loc)
	var out []Enriched
	for _, r := range rows {
		if !r.IsFulfilled() {
			continue
		}
		ts := r.UpdatedAt
		if ts == "" {
			ts = r.CreatedAt
		}
		when, ok := parseTimestamp(ts, s.loc)
		if !ok || !sameDay(when, today) {
			continue
		}
		out = append(out, Enrich(r))
	}

	if s.students == nil || len(out) == 0 {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(publicIDWorkers)
	for i := range out {
		if out[i].publicIDString() != "" || out[i].StudentID == "" {
			continue
		}
		i := i
		g.Go(func() error {
			pid, err := s.students.PublicID(gctx, out[i].StudentID)
			if err != nil || pid <= 0 {
				s.logg.Debug(s.logg.WithField(gctx, "student_id", out[i].StudentID), "public id unavailable")
				return nil
			}
			out[i].StudentPublicNo = strconv.FormatInt(pid, 10)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (s *service) list(ctx context.Context, token, path string) ([]Reservation, error) {
	resp, err := s.api.Do(ctx, path, apiclient.RequestOptions{Method: http.MethodGet, AuthToken: token})
	if err != nil {
		return nil, err
	}
	var rows []Reservation
	if err := resp.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 and zone-less timestamps; the latter are
// read in loc.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.Replace(strings.TrimSpace(raw), " ", "T", 1)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
