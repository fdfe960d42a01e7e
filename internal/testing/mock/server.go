package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"jenkey/internal/remote"
)

// Call is one recorded server call.
type Call struct {
	Op   string
	Name string
	// Document is the XML pushed by Create/Reconfigure calls.
	Document string
	// Number is the build number for SetNextBuildNumber.
	Number int
}

func (c Call) String() string {
	if c.Name == "" {
		return c.Op
	}
	return c.Op + " " + c.Name
}

// Failure makes matching calls fail.
type Failure struct {
	// Op matches the operation name; empty matches any.
	Op string
	// Name matches the job or view; empty matches any.
	Name string
	// Err is returned, wrapped as a *remote.TransportError.
	Err error
	// Times limits how often the failure fires; zero means always.
	Times int
}

// Server is an in-memory remote.Server.
type Server struct {
	mu           sync.Mutex
	jobs         map[string]string
	views        map[string]string
	buildNumbers map[string]int
	calls        []Call
	failures     []*Failure
	delay        time.Duration
	inFlight     int
	maxInFlight  int
	dials        int
}

var _ remote.Server = (*Server)(nil)

// NewServer creates an empty server.
func NewServer() *Server {
	return &Server{
		jobs:         make(map[string]string),
		views:        make(map[string]string),
		buildNumbers: make(map[string]int),
	}
}

// WithJobs seeds existing jobs with empty documents.
func (s *Server) WithJobs(ids ...string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.jobs[id] = ""
	}
	return s
}

// WithViews seeds existing views with empty documents.
func (s *Server) WithViews(names ...string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.views[name] = ""
	}
	return s
}

// WithDelay makes every call sleep for d, which lets tests observe
// concurrency.
func (s *Server) WithDelay(d time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Fail registers a failure rule.
func (s *Server) Fail(f Failure) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &f)
	return s
}

// Factory returns a remote.Factory handing out this server and counting
// dials.
func (s *Server) Factory() remote.Factory {
	return func(context.Context) (remote.Server, error) {
		s.mu.Lock()
		s.dials++
		s.mu.Unlock()
		return s, nil
	}
}

// Dials returns how many handles Factory handed out.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Calls returns the recorded calls in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls for op.
func (s *Server) CallsTo(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the names of the recorded calls for op.
func (s *Server) Names(op string) []string {
	var out []string
	for _, c := range s.CallsTo(op) {
		out = append(out, c.Name)
	}
	return out
}

// MaxInFlight returns the highest number of concurrent calls observed.
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// Job returns a stored job document.
func (s *Server) Job(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.jobs[id]
	return doc, ok
}

// View returns a stored view document.
func (s *Server) View(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.views[name]
	return doc, ok
}

// NextBuildNumber returns the last build number set for id.
func (s *Server) NextBuildNumber(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildNumbers[id]
}

// JobIDs returns the stored job ids, sorted.
func (s *Server) JobIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedJobIDs()
}

func (s *Server) sortedJobIDs() []string {
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// begin records the call and returns an injected failure, if any. The
// returned func must be deferred to end the call.
func (s *Server) begin(ctx context.Context, call Call) (func(), error) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	delay := s.delay
	var injected error
	for _, f := range s.failures {
		if (f.Op == "" || f.Op == call.Op) && (f.Name == "" || f.Name == call.Name) {
			if f.Times < 0 {
				continue
			}
			injected = f.Err
			if injected == nil {
				injected = errors.New("injected failure")
			}
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					f.Times = -1
				}
			}
			break
		}
	}
	s.mu.Unlock()

	end := func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			end()
			return func() {}, remote.Wrap(call.Op, call.Name, ctx.Err())
		}
	}
	if injected != nil {
		end()
		return func() {}, remote.Wrap(call.Op, call.Name, injected)
	}
	if err := ctx.Err(); err != nil {
		end()
		return func() {}, remote.Wrap(call.Op, call.Name, err)
	}
	return end, nil
}

func notFound(op, kind, name string) error {
	return &remote.TransportError{Op: op, Name: name, StatusCode: 404, Err: fmt.Errorf("%s does not exist", kind)}
}

// JobExists reports whether the job is stored.
func (s *Server) JobExists(ctx context.Context, id string) (bool, error) {
	end, err := s.begin(ctx, Call{Op: "JobExists", Name: id})
	if err != nil {
		return false, err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok, nil
}

// CreateJob stores a new job.
func (s *Server) CreateJob(ctx context.Context, id, document string) error {
	end, err := s.begin(ctx, Call{Op: "CreateJob", Name: id, Document: document})
	if err != nil {
		return err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		return &remote.TransportError{Op: "CreateJob", Name: id, StatusCode: 400, Err: errors.New("job already exists")}
	}
	s.jobs[id] = document
	return nil
}

// ReconfigureJob replaces a stored job.
func (s *Server) ReconfigureJob(ctx context.Context, id, document string) error {
	end, err := s.begin(ctx, Call{Op: "ReconfigureJob", Name: id, Document: document})
	if err != nil {
		return err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return notFound("ReconfigureJob", "job", id)
	}
	s.jobs[id] = document
	return nil
}

// DeleteJob removes a stored job.
func (s *Server) DeleteJob(ctx context.Context, id string) error {
	end, err := s.begin(ctx, Call{Op: "DeleteJob", Name: id})
	if err != nil {
		return err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return notFound("DeleteJob", "job", id)
	}
	delete(s.jobs, id)
	delete(s.buildNumbers, id)
	return nil
}

// ListJobIDs returns the stored job ids, sorted.
func (s *Server) ListJobIDs(ctx context.Context) ([]string, error) {
	end, err := s.begin(ctx, Call{Op: "ListJobIDs"})
	if err != nil {
		return nil, err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedJobIDs(), nil
}

// SetNextBuildNumber records the build number of a stored job.
func (s *Server) SetNextBuildNumber(ctx context.Context, id string, number int) error {
	end, err := s.begin(ctx, Call{Op: "SetNextBuildNumber", Name: id, Number: number})
	if err != nil {
		return err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return notFound("SetNextBuildNumber", "job", id)
	}
	s.buildNumbers[id] = number
	return nil
}

// JobCount returns the number of stored jobs.
func (s *Server) JobCount(ctx context.Context) (int, error) {
	end, err := s.begin(ctx, Call{Op: "JobCount"})
	if err != nil {
		return 0, err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs), nil
}

// ViewExists reports whether the view is stored.
func (s *Server) ViewExists(ctx context.Context, name string) (bool, error) {
	end, err := s.begin(ctx, Call{Op: "ViewExists", Name: name})
	if err != nil {
		return false, err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.views[name]
	return ok, nil
}

// CreateView stores a new view.
func (s *Server) CreateView(ctx context.Context, name, document string) error {
	end, err := s.begin(ctx, Call{Op: "CreateView", Name: name, Document: document})
	if err != nil {
		return err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[name]; ok {
		return &remote.TransportError{Op: "CreateView", Name: name, StatusCode: 400, Err: errors.New("view already exists")}
	}
	s.views[name] = document
	return nil
}

// ReconfigureView replaces a stored view.
func (s *Server) ReconfigureView(ctx context.Context, name, document string) error {
	end, err := s.begin(ctx, Call{Op: "ReconfigureView", Name: name, Document: document})
	if err != nil {
		return err
	}
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[name]; !ok {
		return notFound("ReconfigureView", "view", name)
	}
	s.views[name] = document
	return nil
}

// Summary renders the recorded calls one per line, for failure messages.
func (s *Server) Summary() string {
	calls := s.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}
