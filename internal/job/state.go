package job

import "sort"

// State is the desired set of projects, keyed by project name. It is built
// entirely before reconciliation and only read afterwards.
type State struct {
	order    []string
	projects map[string]*Project
}

// NewState creates an empty desired state.
func NewState() *State {
	return &State{projects: make(map[string]*Project)}
}

// Add registers a project under its name.
func (s *State) Add(p *Project) error {
	name := p.Name()
	if _, exists := s.projects[name]; exists {
		return &DuplicateError{Kind: "project", Name: name}
	}
	s.order = append(s.order, name)
	s.projects[name] = p
	return nil
}

// Project returns the project with the given name.
func (s *State) Project(name string) (*Project, bool) {
	p, ok := s.projects[name]
	return p, ok
}

// Projects returns projects in the order they were added.
func (s *State) Projects() []*Project {
	out := make([]*Project, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.projects[name])
	}
	return out
}

// Len returns the number of projects.
func (s *State) Len() int {
	return len(s.order)
}

// JobCount returns the total number of jobs across projects.
func (s *State) JobCount() int {
	n := 0
	for _, p := range s.projects {
		n += p.Len()
	}
	return n
}

// JobIDs returns every desired job id, sorted.
func (s *State) JobIDs() []string {
	var ids []string
	for _, p := range s.projects {
		ids = append(ids, p.order...)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that job ids are unique across projects.
func (s *State) Validate() error {
	owner := make(map[string]string)
	for _, name := range s.order {
		for _, id := range s.projects[name].order {
			if other, ok := owner[id]; ok {
				return &DuplicateError{Kind: "job", Name: id, Project: other}
			}
			owner[id] = name
		}
	}
	return nil
}
