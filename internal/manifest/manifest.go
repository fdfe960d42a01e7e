package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"jenkey/internal/job"
	"jenkey/internal/placeholder"
	"jenkey/pkg/logging"
)

// TupleTag marks a YAML sequence as a placeholder.Tuple, whose strings are
// kept verbatim.
const TupleTag = "!tuple"

// Error reports a problem at a position in a manifest file.
type Error struct {
	File string
	Line int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	}
	return fmt.Sprintf("%s: %s", e.File, msg)
}

func (e *Error) Unwrap() error { return e.Err }

type parser struct {
	file string
}

func (p *parser) errorf(n *yaml.Node, format string, args ...any) error {
	line := 0
	if n != nil {
		line = n.Line
	}
	return &Error{File: p.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// LoadDir reads every *.yaml and *.yml file in dir, sorted by name, as one
// project each. Job ids must be unique across files.
func LoadDir(dir string) (*job.State, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsManifest(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	state := job.NewState()
	owner := make(map[string]string)
	for _, file := range files {
		p, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		if err := state.Add(p); err != nil {
			return nil, &Error{File: file, Err: err}
		}
		for _, id := range p.IDs() {
			if other, ok := owner[id]; ok {
				return nil, &Error{File: file, Err: &job.DuplicateError{Kind: "job", Name: id, Project: other}}
			}
			owner[id] = p.Name()
		}
		logging.Debug("Manifest", "Loaded project '%s' with %d jobs from %s", p.Name(), p.Len(), file)
	}

	logging.Info("Manifest", "Loaded %d projects (%d jobs) from %s", state.Len(), state.JobCount(), dir)
	return state, nil
}

// IsManifest reports whether a file name has a manifest extension.
func IsManifest(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile reads one project manifest.
func LoadFile(file string) (*job.Project, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(file, data)
}

// Parse decodes a project manifest. name is used in error messages.
func Parse(name string, data []byte) (*job.Project, error) {
	p := &parser{file: name}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{File: name, Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &Error{File: name, Msg: "empty manifest"}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, p.errorf(doc, "manifest must be a mapping with 'vars' and 'jobs'")
	}

	var (
		vars     map[string]any
		jobsNode *yaml.Node
	)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		switch key.Value {
		case "vars":
			m, err := p.mapping(value)
			if err != nil {
				return nil, err
			}
			vars = m
		case "jobs":
			jobsNode = value
		default:
			return nil, p.errorf(key, "unknown key '%s'", key.Value)
		}
	}

	project := job.NewProject(vars)
	if jobsNode == nil {
		return project, nil
	}
	if jobsNode.Kind != yaml.SequenceNode {
		return nil, p.errorf(jobsNode, "'jobs' must be a list")
	}
	for _, jobNode := range jobsNode.Content {
		if err := p.job(project, jobNode); err != nil {
			return nil, err
		}
	}
	return project, nil
}

func (p *parser) job(project *job.Project, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return p.errorf(n, "job must be a mapping")
	}

	var (
		id      string
		jobType string
		meta    map[string]any
		vars    map[string]any
		bags    []*yaml.Node
		cats    []job.Category
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "id":
			if value.Kind != yaml.ScalarNode || value.Value == "" {
				return p.errorf(value, "job id must be a non-empty string")
			}
			id = value.Value
		case "type":
			if value.Kind != yaml.ScalarNode {
				return p.errorf(value, "job type must be a string")
			}
			jobType = value.Value
		case "meta":
			m, err := p.mapping(value)
			if err != nil {
				return err
			}
			meta = m
		case "vars":
			m, err := p.mapping(value)
			if err != nil {
				return err
			}
			vars = m
		default:
			c, err := job.ParseCategory(key.Value)
			if err != nil {
				return p.errorf(key, "unknown job key '%s'", key.Value)
			}
			cats = append(cats, c)
			bags = append(bags, value)
		}
	}
	if id == "" {
		return p.errorf(n, "job is missing an id")
	}

	j := project.AddJob(id, job.WithType(jobType), job.WithMeta(meta), job.WithVars(vars))
	for i, c := range cats {
		if err := p.bag(j, c, bags[i]); err != nil {
			return err
		}
	}
	return nil
}

// bag decodes a list of single-key mappings, or bare names for bits without
// data.
func (p *parser) bag(j *job.Job, c job.Category, n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return p.errorf(n, "'%s' must be a list", c)
	}
	for _, item := range n.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			j.Add(c, item.Value, nil)
		case yaml.MappingNode:
			if len(item.Content) != 2 {
				return p.errorf(item, "each '%s' entry must have exactly one name", c)
			}
			data, err := p.value(item.Content[1])
			if err != nil {
				return err
			}
			j.Add(c, item.Content[0].Value, data)
		default:
			return p.errorf(item, "invalid '%s' entry", c)
		}
	}
	return nil
}

func (p *parser) mapping(n *yaml.Node) (map[string]any, error) {
	v, err := p.value(n)
	if err != nil {
		return nil, err
	}
	m, ok := v.(placeholder.Map)
	if !ok {
		if s, isScalar := v.(placeholder.Scalar); isScalar && s.V == nil {
			return nil, nil
		}
		return nil, p.errorf(n, "expected a mapping")
	}
	// Strings and scalars become plain values; containers stay Values so
	// tuples keep their meaning.
	out := make(map[string]any, len(m))
	for k, item := range m {
		switch item.(type) {
		case placeholder.String, placeholder.Scalar:
			out[k] = item.Interface()
		default:
			out[k] = item
		}
	}
	return out, nil
}

// value converts a YAML node into a placeholder value, keeping the
// distinction between List and Tuple.
func (p *parser) value(n *yaml.Node) (placeholder.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return p.value(n.Alias)

	case yaml.ScalarNode:
		if n.Tag == "!!str" || n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			return placeholder.String(n.Value), nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, &Error{File: p.file, Line: n.Line, Err: err}
		}
		return placeholder.From(v), nil

	case yaml.SequenceNode:
		items := make([]placeholder.Value, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := p.value(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		if n.Tag == TupleTag {
			return placeholder.Tuple(items), nil
		}
		return placeholder.List(items), nil

	case yaml.MappingNode:
		out := make(placeholder.Map, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return nil, p.errorf(key, "mapping keys must be strings")
			}
			if _, dup := out[key.Value]; dup {
				return nil, p.errorf(key, "duplicate key '%s'", key.Value)
			}
			v, err := p.value(value)
			if err != nil {
				return nil, err
			}
			out[key.Value] = v
		}
		return out, nil
	}

	return nil, p.errorf(n, "unsupported YAML node")
}

// IsError reports whether err came from manifest parsing.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
