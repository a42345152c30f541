// Package probe walks an ordered list of candidate endpoints for one logical
// operation, skipping routes the remote API does not implement.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/metrics"
)

// ErrNoEndpoint matches (errors.Is) the failure returned when every candidate was not implemented.
var ErrNoEndpoint = errors.New("no endpoint available")

// Candidate is one route that may implement an operation.
type Candidate struct {
	Path   string
	Method string
}

func (c Candidate) String() string {
	method := c.Method
	if method == "" {
		method = http.MethodPost
	}
	return method + " " + c.Path
}

// Outcome classifies a single attempt.
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeNotImplemented Outcome = "not_implemented"
	OutcomeFailed         Outcome = "failed"
)

// Classify maps a call result onto an Outcome. Only 404 and 405 mean the
// route is absent; every other failure is real.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case apiclient.IsNotImplemented(err):
		return OutcomeNotImplemented
	default:
		return OutcomeFailed
	}
}

// Attempt records what happened to one candidate.
type Attempt struct {
	Candidate Candidate
	Outcome   Outcome
	Err       error
}

// Result is the outcome of a walk that found an implemented route.
type Result struct {
	Body      apiclient.Body
	Candidate Candidate
	Attempts  []Attempt
}

// CallFunc issues one candidate.
type CallFunc func(ctx context.Context, c Candidate) (apiclient.Body, error)

type exhaustedError struct {
	operation string
	last      error
}

func (e *exhaustedError) Error() string {
	if e.last == nil {
		return fmt.Sprintf("%s: %s", ErrNoEndpoint, e.operation)
	}
	return fmt.Sprintf("%s: %s: %v", ErrNoEndpoint, e.operation, e.last)
}

func (e *exhaustedError) Is(target error) bool { return target == ErrNoEndpoint }

func (e *exhaustedError) Unwrap() error { return e.last }

// Prober runs candidate walks against the remote API.
type Prober struct {
	doer    apiclient.Doer
	logg    *logger.Logger
	metrics *metrics.OperationMetrics
}

// New builds a Prober. logg and m may be nil.
func New(doer apiclient.Doer, logg *logger.Logger, m *metrics.OperationMetrics) (*Prober, error) {
	if doer == nil {
		return nil, fmt.Errorf("api client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Prober{doer: doer, logg: logg, metrics: m}, nil
}

// Try sends opts to each candidate in order (the candidate's Method wins over
// opts.Method) and returns the first success. A 404/405 moves on to the next
// candidate, any other failure stops the walk, and exhaustion returns a
// CodeNotFound error matching ErrNoEndpoint.
func (p *Prober) Try(ctx context.Context, operation string, candidates []Candidate, opts apiclient.RequestOptions) (Result, error) {
	return p.Walk(ctx, operation, candidates, p.requestCall(opts))
}

// TryOptional is Try for best-effort steps: exhaustion is reported as
// ok=false with a nil error.
func (p *Prober) TryOptional(ctx context.Context, operation string, candidates []Candidate, opts apiclient.RequestOptions) (*Result, bool, error) {
	res, err := p.Walk(ctx, operation, candidates, p.requestCall(opts))
	if err != nil {
		if errors.Is(err, ErrNoEndpoint) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &res, true, nil
}

// Walk is the generic form used when a candidate needs a custom call (multipart uploads).
func (p *Prober) Walk(ctx context.Context, operation string, candidates []Candidate, call CallFunc) (Result, error) {
	var (
		attempts []Attempt
		last     error
	)
	ctx = p.logg.WithOperation(ctx, operation)

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe cancelled")
		}

		body, err := call(ctx, cand)
		outcome := Classify(err)
		attempts = append(attempts, Attempt{Candidate: cand, Outcome: outcome, Err: err})
		p.metrics.IncProbeAttempt(operation, string(outcome))

		switch outcome {
		case OutcomeSucceeded:
			if len(attempts) > 1 {
				p.logg.Info(p.logg.WithField(ctx, "endpoint", cand.String()), "probe resolved to fallback endpoint")
			}
			return Result{Body: body, Candidate: cand, Attempts: attempts}, nil
		case OutcomeNotImplemented:
			p.logg.Debug(p.logg.WithField(ctx, "endpoint", cand.String()), "endpoint not implemented, trying next")
			last = err
		default:
			return Result{Attempts: attempts}, err
		}
	}

	exhausted := &exhaustedError{operation: operation, last: last}
	return Result{Attempts: attempts}, pkgerrors.Wrap(pkgerrors.CodeNotFound, exhausted, "no endpoint available for "+operation)
}

func (p *Prober) requestCall(opts apiclient.RequestOptions) CallFunc {
	return func(ctx context.Context, c Candidate) (apiclient.Body, error) {
		req := opts
		if c.Method != "" {
			req.Method = c.Method
		}
		if req.Method == "" {
			req.Method = http.MethodPost
		}
		return p.doer.Do(ctx, c.Path, req)
	}
}
