package job

import (
	"fmt"

	"jenkey/internal/placeholder"
	"jenkey/pkg/logging"
)

const (
	// ProjectNameVar names the project variable carrying its display name.
	ProjectNameVar = "project_name"

	// DefaultProjectName is used when ProjectNameVar is unset.
	DefaultProjectName = "unsorted"
)

// Project is a named set of jobs sharing default variables. It owns its jobs
// exclusively and derives one view listing their ids.
type Project struct {
	// Vars are defaults for every job; job variables win on collision.
	Vars map[string]any

	order []string
	jobs  map[string]*Job
}

// NewProject creates an empty project with the given default variables.
func NewProject(vars map[string]any) *Project {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Project{
		Vars: vars,
		jobs: make(map[string]*Job),
	}
}

// Name returns the project_name variable, or DefaultProjectName.
func (p *Project) Name() string {
	if name, ok := p.Vars[ProjectNameVar]; ok && name != nil {
		if s := fmt.Sprint(name); s != "" {
			return s
		}
	}
	return DefaultProjectName
}

// AddJob creates a job owned by this project. Adding an id twice replaces the
// earlier job but keeps its position.
func (p *Project) AddJob(id string, opts ...Option) *Job {
	j := New(id, opts...)
	if _, exists := p.jobs[id]; exists {
		logging.Warn("Project", "Job '%s' redefined in project '%s'", id, p.Name())
	} else {
		p.order = append(p.order, id)
	}
	p.jobs[id] = j
	return j
}

// Job returns the job with the given id.
func (p *Project) Job(id string) (*Job, bool) {
	j, ok := p.jobs[id]
	return j, ok
}

// IDs returns job ids in insertion order.
func (p *Project) IDs() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of jobs.
func (p *Project) Len() int {
	return len(p.order)
}

// Jobs merges project variables into every job, resolves placeholders and
// returns the jobs in insertion order. It is safe to call repeatedly.
func (p *Project) Jobs() ([]*Job, error) {
	out := make([]*Job, 0, len(p.order))
	for _, id := range p.order {
		j := p.jobs[id]
		if !j.formatted {
			j.Vars = placeholder.Merge(p.Vars, j.Vars)
		}
		if err := j.ResolvePlaceholders(); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// View renders the project's view document from `views/project` with the
// project name and its job ids. It returns the view name and the document.
func (p *Project) View(r Renderer) (string, string, error) {
	if _, err := p.Jobs(); err != nil {
		return "", "", err
	}

	name := p.Name()
	doc, err := r.Render(viewTemplate, map[string]any{
		"name": name,
		"jobs": p.IDs(),
	})
	if err != nil {
		logging.Error("Project", err, "Failed to render view '%s'", name)
		return "", "", &ViewRenderError{View: name, Err: err}
	}
	return name, doc, nil
}
