// Package apiclienttest provides a scripted stand-in for the remote API.
package apiclienttest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
)

// Call records one request received by the fake.
type Call struct {
	Method   string
	Path     string
	Body     any
	Form     url.Values
	Token    string
	Field    string
	Filename string
	Content  string
}

// Key is the "METHOD path" form used for routing and assertions.
func (c Call) Key() string {
	return c.Method + " " + c.Path
}

type response struct {
	status int
	body   string
	err    error
}

// Fake implements apiclient.API. Routes not scripted answer 404.
type Fake struct {
	mu     sync.Mutex
	routes map[string][]response
	calls  []Call
}

func New() *Fake {
	return &Fake{routes: map[string][]response{}}
}

// On queues a response for method+path (path includes any query string).
// The last queued response repeats once earlier ones are consumed.
func (f *Fake) On(method, path string, status int, body string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.routes[key] = append(f.routes[key], response{status: status, body: body})
	return f
}

// OnError queues a transport failure for method+path.
func (f *Fake) OnError(method, path string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.routes[key] = append(f.routes[key], response{err: err})
	return f
}

func (f *Fake) Do(ctx context.Context, path string, opts apiclient.RequestOptions) (apiclient.Body, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	call := Call{Method: method, Path: path, Form: opts.Form, Token: opts.AuthToken}
	if opts.Body != nil {
		if raw, err := json.Marshal(opts.Body); err == nil {
			_ = json.Unmarshal(raw, &call.Body)
		}
	}
	return f.respond(ctx, call)
}

func (f *Fake) DoMultipart(ctx context.Context, path, field, filename string, content io.Reader, authToken string) (apiclient.Body, error) {
	call := Call{Method: http.MethodPost, Path: path, Field: field, Filename: filename, Token: authToken}
	if content != nil {
		raw, _ := io.ReadAll(content)
		call.Content = string(raw)
	}
	return f.respond(ctx, call)
}

func (f *Fake) respond(ctx context.Context, call Call) (apiclient.Body, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	queue := f.routes[call.Key()]
	var resp response
	switch len(queue) {
	case 0:
		resp = response{status: http.StatusNotFound, body: `{"detail":"Not Found"}`}
	case 1:
		resp = queue[0]
	default:
		resp = queue[0]
		f.routes[call.Key()] = queue[1:]
	}
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return apiclient.Body{}, err
	}
	if resp.err != nil {
		return apiclient.Body{}, resp.err
	}
	body := apiclient.ParseBody([]byte(resp.body))
	if resp.status < 200 || resp.status > 299 {
		return body, apiclient.NewStatusError(resp.status, body)
	}
	return body, nil
}

// Calls returns a copy of every recorded call.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Keys returns the "METHOD path" of every recorded call in order.
func (f *Fake) Keys() []string {
	calls := f.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Key())
	}
	return out
}

// Count returns how many calls hit method+path.
func (f *Fake) Count(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// CountPrefix returns how many calls have a "METHOD path" starting with prefix.
func (f *Fake) CountPrefix(prefix string) int {
	n := 0
	for _, key := range f.Keys() {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

// Last returns the most recent call to method+path.
func (f *Fake) Last(method, path string) (Call, bool) {
	calls := f.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method && calls[i].Path == path {
			return calls[i], true
		}
	}
	return Call{}, false
}
