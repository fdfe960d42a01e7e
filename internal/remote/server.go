package remote

import (
	"context"
	"fmt"
)

// Server is an authenticated handle to the remote automation server.
//
// Implementations report every failure as a *TransportError. A handle is not
// required to be safe for concurrent use; callers dial one per worker.
type Server interface {
	JobExists(ctx context.Context, id string) (bool, error)
	CreateJob(ctx context.Context, id, document string) error
	ReconfigureJob(ctx context.Context, id, document string) error
	DeleteJob(ctx context.Context, id string) error
	ListJobIDs(ctx context.Context) ([]string, error)
	SetNextBuildNumber(ctx context.Context, id string, number int) error
	JobCount(ctx context.Context) (int, error)

	ViewExists(ctx context.Context, name string) (bool, error)
	CreateView(ctx context.Context, name, document string) error
	ReconfigureView(ctx context.Context, name, document string) error
}

// Factory dials a new Server handle.
type Factory func(ctx context.Context) (Server, error)

// Static returns a Factory that always hands out the same server. It suits
// implementations that are safe for concurrent use and tests.
func Static(s Server) Factory {
	return func(context.Context) (Server, error) {
		return s, nil
	}
}

// TransportError reports a failed call to the remote server.
type TransportError struct {
	// Op is the server operation, for example "CreateJob".
	Op string
	// Name is the job or view the call was about, if any.
	Name string
	// StatusCode is the HTTP status, when the transport is HTTP.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Op
	if e.Name != "" {
		msg = fmt.Sprintf("%s '%s'", e.Op, e.Name)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Wrap returns err as a *TransportError for op and name. Nil stays nil and
// existing TransportErrors are returned unchanged.
func Wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*TransportError); ok {
		return te
	}
	return &TransportError{Op: op, Name: name, Err: err}
}
