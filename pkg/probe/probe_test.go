package probe

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type scriptedDoer struct {
	statuses map[string]int
	bodies   map[string]string
	calls    []string
}

func (d *scriptedDoer) Do(_ context.Context, path string, opts apiclient.RequestOptions) (apiclient.Body, error) {
	d.calls = append(d.calls, opts.Method+" "+path)
	status, ok := d.statuses[path]
	if !ok {
		status = http.StatusNotFound
	}
	if status >= 300 {
		return apiclient.Body{}, &apiclient.StatusError{Status: status, Message: http.StatusText(status)}
	}
	var out apiclient.Body
	if raw, ok := d.bodies[path]; ok {
		out = apiclient.ParseBody([]byte(raw))
	}
	return out, nil
}

func newTestProber(t *testing.T, doer apiclient.Doer) *Prober {
	t.Helper()
	p, err := New(doer, nil, metrics.NewOperationMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("new prober: %v", err)
	}
	return p
}

func TestTryStopsAtFirstSuccess(t *testing.T) {
	doer := &scriptedDoer{
		statuses: map[string]int{"/a": 404, "/b": 405, "/c": 200, "/d": 200},
		bodies:   map[string]string{"/c": `{"id":"P"}`},
	}
	p := newTestProber(t, doer)

	res, err := p.Try(context.Background(), "op", []Candidate{
		{Path: "/a", Method: http.MethodPost},
		{Path: "/b", Method: http.MethodPost},
		{Path: "/c", Method: http.MethodPost},
		{Path: "/d", Method: http.MethodPost},
	}, apiclient.RequestOptions{})
	if err != nil {
		t.Fatalf("try: %v", err)
	}
	if res.Candidate.Path != "/c" {
		t.Fatalf("unexpected winning candidate %v", res.Candidate)
	}
	var out struct{ ID string }
	if err := res.Body.Decode(&out); err != nil || out.ID != "P" {
		t.Fatalf("unexpected payload %+v (%v)", out, err)
	}
	if len(doer.calls) != 3 {
		t.Fatalf("candidate after success must not be called: %v", doer.calls)
	}
	want := []Outcome{OutcomeNotImplemented, OutcomeNotImplemented, OutcomeSucceeded}
	for i, a := range res.Attempts {
		if a.Outcome != want[i] {
			t.Fatalf("attempt %d outcome %s want %s", i, a.Outcome, want[i])
		}
	}
}

func TestTryPropagatesRealFailure(t *testing.T) {
	doer := &scriptedDoer{statuses: map[string]int{"/a": 404, "/b": 500, "/c": 200}}
	p := newTestProber(t, doer)

	_, err := p.Try(context.Background(), "op", []Candidate{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}}, apiclient.RequestOptions{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if status, _ := apiclient.StatusOf(err); status != 500 {
		t.Fatalf("expected status 500 to propagate, got %d", status)
	}
	if errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("a real failure is not exhaustion")
	}
	if len(doer.calls) != 2 {
		t.Fatalf("walk must stop after the failing candidate: %v", doer.calls)
	}
}

func TestTryExhaustion(t *testing.T) {
	doer := &scriptedDoer{statuses: map[string]int{}}
	p := newTestProber(t, doer)

	_, err := p.Try(context.Background(), "op", []Candidate{{Path: "/a"}, {Path: "/b", Method: http.MethodDelete}}, apiclient.RequestOptions{})
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected CodeNotFound, got %v", typed)
	}
	if doer.calls[0] != "POST /a" || doer.calls[1] != "DELETE /b" {
		t.Fatalf("unexpected calls %v", doer.calls)
	}
}

func TestTryOptional(t *testing.T) {
	p := newTestProber(t, &scriptedDoer{statuses: map[string]int{}})
	res, ok, err := p.TryOptional(context.Background(), "op", []Candidate{{Path: "/a"}}, apiclient.RequestOptions{})
	if err != nil || ok || res != nil {
		t.Fatalf("exhaustion should be (nil,false,nil), got (%v,%v,%v)", res, ok, err)
	}

	p = newTestProber(t, &scriptedDoer{statuses: map[string]int{"/a": 409}})
	if _, _, err := p.TryOptional(context.Background(), "op", []Candidate{{Path: "/a"}}, apiclient.RequestOptions{}); err == nil {
		t.Fatalf("non 404/405 errors must propagate from TryOptional")
	}

	p = newTestProber(t, &scriptedDoer{statuses: map[string]int{"/a": 204}})
	res, ok, err = p.TryOptional(context.Background(), "op", []Candidate{{Path: "/a"}}, apiclient.RequestOptions{})
	if err != nil || !ok || res == nil || res.Candidate.Path != "/a" {
		t.Fatalf("expected success, got (%v,%v,%v)", res, ok, err)
	}
}

func TestWalkStopsOnCancelledContext(t *testing.T) {
	p := newTestProber(t, &scriptedDoer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := p.Walk(ctx, "op", []Candidate{{Path: "/a"}}, func(context.Context, Candidate) (apiclient.Body, error) {
		called = true
		return apiclient.Body{}, nil
	})
	if called {
		t.Fatalf("no candidate should run after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != OutcomeSucceeded {
		t.Fatalf("nil should succeed")
	}
	if Classify(&apiclient.StatusError{Status: 405}) != OutcomeNotImplemented {
		t.Fatalf("405 should be not implemented")
	}
	if Classify(errors.New("dial tcp")) != OutcomeFailed {
		t.Fatalf("network failure should fail")
	}
}
