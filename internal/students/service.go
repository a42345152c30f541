package students

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/angelmondragon/eltafawook-admin/internal/notifications"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/phone"
)

const searchPath = "/students/search"

// Service is the student surface of the remote API.
type Service interface {
	Search(ctx context.Context, term string) ([]Student, error)
	Get(ctx context.Context, id string, publicID int64) (*Student, error)
	Create(ctx context.Context, in Input) (*CreateResult, error)
	Update(ctx context.Context, id string, in Input) (*Student, error)
	PublicID(ctx context.Context, studentID string) (int64, error)
}

type ServiceParams struct {
	API           apiclient.Doer
	Session       *session.Session
	Notifications notifications.Service
	Logger        *logger.Logger
}

type service struct {
	api    apiclient.Doer
	sess   *session.Session
	notify notifications.Service
	logg   *logger.Logger

	mu        sync.RWMutex
	publicIDs map[string]int64
}

func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("api client required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		api:       params.API,
		sess:      params.Session,
		notify:    params.Notifications,
		logg:      params.Logger,
		publicIDs: map[string]int64{},
	}, nil
}

// Search dispatches on the shape of term: a phone searches the student and
// parent phone fields (merged, first occurrence wins), up to six digits is a
// public id, anything else is free text.
func (s *service) Search(ctx context.Context, term string) ([]Student, error) {
	raw := strings.TrimSpace(term)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search term is required")
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}

	switch phone.ClassifySearchTerm(raw) {
	case phone.SearchPhone:
		e164, _ := phone.NormalizeEgyptian(raw)
		byPhone, err := s.search(ctx, token, "phone", e164)
		if err != nil {
			return nil, err
		}
		byParent, err := s.search(ctx, token, "parent_phone", e164)
		if err != nil {
			return nil, err
		}
		return dedupe(append(byPhone, byParent...)), nil
	case phone.SearchPublicID:
		return s.search(ctx, token, "public_id", raw)
	default:
		return s.search(ctx, token, "q", raw)
	}
}

// Get fetches one student. Deployments without GET /students/{id} fall back
// to a public id search when publicID is known.
func (s *service) Get(ctx context.Context, id string, publicID int64) (*Student, error) {
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" && publicID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing student id")
	}

	if id != "" {
		var st Student
		err := s.get(ctx, token, "/students/"+url.PathEscape(id), &st)
		if err == nil {
			s.remember(st)
			return &st, nil
		}
		if !apiclient.IsNotImplemented(err) || publicID <= 0 {
			return nil, err
		}
	}

	rows, err := s.search(ctx, token, "public_id", strconv.FormatInt(publicID, 10))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
	}
	return &rows[0], nil
}

// Create registers a student and queues the gendered welcome messages. A
// message failure is reported in Warnings and never fails the creation.
func (s *service) Create(ctx context.Context, in Input) (*CreateResult, error) {
	body, err := buildCreatePayload(in)
	if err != nil {
		return nil, err
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}
	if body.BranchID == "" {
		body.BranchID = s.sess.Branch().ID
	}

	resp, err := s.api.Do(ctx, "/students", apiclient.RequestOptions{Method: http.MethodPost, Body: body, AuthToken: token})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.As(err).Code(), err, apiclient.MessageOf(err)).WithTitle("Failed to create student")
	}
	var st Student
	if err := resp.Decode(&st); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode created student")
	}
	s.remember(st)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"student_id": st.ID, "public_id": st.PublicID}), "student created")

	result := &CreateResult{Student: st}
	result.Queued, result.Warnings = s.sendWelcome(ctx, token, st)
	return result, nil
}

func (s *service) Update(ctx context.Context, id string, in Input) (*Student, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing student id")
	}
	body, err := buildPayload(in)
	if err != nil {
		return nil, err
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}

	resp, err := s.api.Do(ctx, "/students/"+url.PathEscape(id), apiclient.RequestOptions{Method: http.MethodPut, Body: body, AuthToken: token})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.As(err).Code(), err, apiclient.MessageOf(err)).WithTitle("Failed to update student")
	}
	var st Student
	if err := resp.Decode(&st); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode updated student")
	}
	s.remember(st)
	return &st, nil
}

// PublicID resolves the public id of studentID, caching every answer.
func (s *service) PublicID(ctx context.Context, studentID string) (int64, error) {
	if studentID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "missing student id")
	}
	s.mu.RLock()
	cached, ok := s.publicIDs[studentID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	token, err := s.sess.RequireToken()
	if err != nil {
		return 0, err
	}
	var st Student
	err = s.get(ctx, token, "/students/"+url.PathEscape(studentID), &st)
	if err != nil {
		if !apiclient.IsNotImplemented(err) {
			return 0, err
		}
		rows, serr := s.list(ctx, token, searchPath+"?id="+url.QueryEscape(studentID)+"&limit=1")
		if serr != nil {
			return 0, serr
		}
		if len(rows) == 0 {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
		}
		st = rows[0]
	}
	if st.ID == "" {
		st.ID = studentID
	}
	s.remember(st)
	return st.PublicID, nil
}

func (s *service) sendWelcome(ctx context.Context, token string, st Student) (int, []string) {
	wa := s.sess.WASettings()
	gender := st.Gender
	if gender != enums.GenderFemale {
		gender = enums.GenderMale
	}
	idStr := st.ID
	if st.PublicID > 0 {
		idStr = strconv.FormatInt(st.PublicID, 10)
	}
	childWord, idPronoun := "ابن", "بتاعه"
	if gender == enums.GenderFemale {
		childWord, idPronoun = "بنت", "بتاعتها"
	}

	var messages []notifications.WAMessage
	if st.Phone != "" {
		messages = append(messages, notifications.WAMessage{
			To: st.Phone,
			Message: settings.Render(wa.StudentJoinTemplate(gender), map[string]string{
				"student_name": st.FullName,
				"student_id":   idStr,
				"group_link":   wa.GroupLink(gender),
			}),
			Tags: map[string]string{"kind": "student_join", "student_id": st.ID, "template": string(gender) + "_student_join_tpl"},
		})
	}
	if st.ParentPhone != nil && *st.ParentPhone != "" {
		messages = append(messages, notifications.WAMessage{
			To: *st.ParentPhone,
			Message: settings.Render(wa.ParentWelcomeTemplate(gender), map[string]string{
				"student_name": st.FullName,
				"student_id":   idStr,
				"child_word":   childWord,
				"id_pronoun":   idPronoun,
				"child_of_you": childWord + " حضرتك",
			}),
			Tags: map[string]string{"kind": "parent_welcome", "student_id": st.ID, "template": string(gender) + "_parent_welcome_tpl"},
		})
	}

	queued := 0
	var warnings []string
	for _, msg := range messages {
		ok, err := s.notify.EnqueueWA(ctx, token, msg)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"kind": msg.Tags["kind"], "error": err.Error()}), "welcome message not queued")
			warnings = append(warnings, fmt.Sprintf("%s message not queued: %s", msg.Tags["kind"], apiclient.MessageOf(err)))
			continue
		}
		if ok {
			queued++
		}
	}
	return queued, warnings
}

func (s *service) search(ctx context.Context, token, field, value string) ([]Student, error) {
	return s.list(ctx, token, searchPath+"?"+field+"="+url.QueryEscape(value))
}

func (s *service) list(ctx context.Context, token, path string) ([]Student, error) {
	var rows []Student
	if err := s.get(ctx, token, path, &rows); err != nil {
		return nil, err
	}
	for _, st := range rows {
		s.remember(st)
	}
	return rows, nil
}

func (s *service) get(ctx context.Context, token, path string, dst any) error {
	body, err := s.api.Do(ctx, path, apiclient.RequestOptions{Method: http.MethodGet, AuthToken: token})
	if err != nil {
		return err
	}
	return body.Decode(dst)
}

func (s *service) remember(st Student) {
	if st.ID == "" || st.PublicID <= 0 {
		return
	}
	s.mu.Lock()
	s.publicIDs[st.ID] = st.PublicID
	s.mu.Unlock()
}

func dedupe(rows []Student) []Student {
	seen := make(map[string]struct{}, len(rows))
	out := make([]Student, 0, len(rows))
	for _, st := range rows {
		if _, ok := seen[st.ID]; ok {
			continue
		}
		seen[st.ID] = struct{}{}
		out = append(out, st)
	}
	return out
}
