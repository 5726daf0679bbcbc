package jobs

import "context"

// Result is the outcome of one unit of handler work. Task-specific fields
// belong in Data.
type Result struct {
	Success bool
	Message string
	Error   error
	Data    map[string]interface{}
}

// Context is the per-attempt context passed to a Handler. It carries no
// cancellation of its own beyond ctx; the engine derives ctx's deadline from
// Metadata.Timeout.
type Context struct {
	JobType    Type
	Message    Message
	Attempt    int // zero-based: first attempt is 0
	MaxRetries int
	Config     map[string]interface{}
}

// Handler is the polymorphic unit of work bound to a JobType. Concrete
// handlers are values implementing this interface; there is one singleton
// handler instance per JobType, constructed lazily by the Registry.
type Handler interface {
	// Validate is a cheap pre-flight check. A false return short-circuits
	// the run with a single failed Result; it is never retried.
	Validate(ctx context.Context, jc Context) (bool, error)

	// Execute performs the unit of work.
	Execute(ctx context.Context, jc Context) ([]Result, error)

	// ShouldRetry classifies an error from Execute. The default
	// implementation (BaseHandler.ShouldRetry) retries only transient errors.
	ShouldRetry(err error, jc Context) bool

	// HandleError is a last-chance recovery hook. Returning a non-nil
	// slice overrides the default failure path for this attempt.
	HandleError(err error, jc Context) []Result

	// PostExecutionCleanup runs best-effort after every attempt,
	// regardless of outcome. Failures are logged, never propagated.
	PostExecutionCleanup(ctx context.Context, jc Context, results []Result)
}

// BaseHandler supplies default implementations for Validate, ShouldRetry,
// HandleError and PostExecutionCleanup. Concrete handlers embed it, supply
// Execute, and override Validate where they check their payload.
type BaseHandler struct{}

// ShouldRetry by default retries only errors implementing Transient()bool
// and returning true; see Transient.
func (BaseHandler) ShouldRetry(err error, _ Context) bool {
	return IsTransient(err)
}

// HandleError declines to recover; returning nil keeps the default failure
// path (retry-or-DLQ per ShouldRetry).
func (BaseHandler) HandleError(error, Context) []Result { return nil }

// PostExecutionCleanup is a no-op by default.
func (BaseHandler) PostExecutionCleanup(context.Context, Context, []Result) {}

// Validate accepts every execution by default.
func (BaseHandler) Validate(context.Context, Context) (bool, error) { return true, nil }

// transientError marks an error as safe to retry.
type transientError struct{ err error }

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }
func (t *transientError) Transient() bool { return true }

// Transient wraps err so that IsTransient(err) reports true, matching the
// taxonomy's "transient I/O error" / "timeout" kinds.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or anything it wraps) declares itself
// transient via a Transient() bool method.
func IsTransient(err error) bool {
	for err != nil {
		if t, ok := err.(interface{ Transient() bool }); ok && t.Transient() {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
