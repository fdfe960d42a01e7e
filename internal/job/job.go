package job

import (
	"fmt"
	"strconv"
	"strings"

	"jenkey/internal/placeholder"
	"jenkey/pkg/logging"
)

const (
	// DefaultType is the job type used when none is given.
	DefaultType = "default"

	// MinBuildNumberVar names the variable holding the next build number floor.
	MinBuildNumberVar = "min_build_number"
)

// Job describes one automation job on the remote server.
//
// A Job is built through chained Add, Replace and Insert calls, has its
// placeholders resolved exactly once and is then rendered to a document.
type Job struct {
	// ID is the remote job name. It is never substituted.
	ID   string
	Type string
	Meta placeholder.Map
	Vars map[string]any

	bags      [categoryCount]*Bag
	formatted bool
}

// Option configures a Job at creation time.
type Option func(*Job)

// WithType sets the job type, which selects the `jobtypes/<type>` template.
func WithType(t string) Option {
	return func(j *Job) {
		if t != "" {
			j.Type = t
		}
	}
}

// WithVars sets the job's own variables. Keys collide in favour of these
// over the owning project's variables.
func WithVars(vars map[string]any) Option {
	return func(j *Job) {
		for k, v := range vars {
			j.Vars[k] = v
		}
	}
}

// WithMeta sets free-form metadata exposed to the type template as `.meta`.
func WithMeta(meta map[string]any) Option {
	return func(j *Job) {
		for k, v := range meta {
			j.Meta[k] = placeholder.From(v)
		}
	}
}

// New creates an unformatted job.
func New(id string, opts ...Option) *Job {
	j := &Job{
		ID:   id,
		Type: DefaultType,
		Meta: placeholder.Map{},
		Vars: map[string]any{},
	}
	for i := range j.bags {
		j.bags[i] = &Bag{category: Category(i)}
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Bag returns the bag for category c.
func (j *Job) Bag(c Category) *Bag {
	if !c.Valid() {
		panic(fmt.Sprintf("job: invalid category %d", int(c)))
	}
	return j.bags[c]
}

// Bits returns a copy of the bits in category c.
func (j *Job) Bits(c Category) []Bit {
	return j.Bag(c).Bits()
}

// Add appends a bit to category c.
func (j *Job) Add(c Category, name string, data any) *Job {
	j.warnIfFormatted(c, name)
	j.Bag(c).Add(name, data)
	return j
}

// Replace sets category c to the single given bit.
func (j *Job) Replace(c Category, name string, data any) *Job {
	j.warnIfFormatted(c, name)
	j.Bag(c).Replace(name, data)
	return j
}

// Insert places a bit at index within category c.
func (j *Job) Insert(c Category, name string, data any, index int) *Job {
	j.warnIfFormatted(c, name)
	j.Bag(c).Insert(name, data, index)
	return j
}

// Prepend inserts a bit at the front of category c.
func (j *Job) Prepend(c Category, name string, data any) *Job {
	return j.Insert(c, name, data, 0)
}

func (j *Job) warnIfFormatted(c Category, name string) {
	if j.formatted {
		logging.Warn("Job", "Bit '%s/%s' added to job '%s' after placeholders were resolved; it is kept verbatim", c, name, j.ID)
	}
}

// Formatted reports whether placeholders have been resolved.
func (j *Job) Formatted() bool {
	return j.formatted
}

// MinBuildNumber returns the next build number floor from the job's
// variables. Numeric strings are accepted; zero or absent means no floor.
func (j *Job) MinBuildNumber() (int, bool) {
	raw, ok := j.Vars[MinBuildNumberVar]
	if !ok || raw == nil {
		return 0, false
	}

	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case uint64:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			logging.Warn("Job", "Ignoring non-numeric %s '%s' on job '%s'", MinBuildNumberVar, v, j.ID)
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if n <= 0 {
		return 0, false
	}
	return n, true
}

// ResolvePlaceholders substitutes every attribute of the job using its
// variables. It runs at most once per job; later calls are no-ops. On error
// the job is left untouched and unformatted.
func (j *Job) ResolvePlaceholders() error {
	if j.formatted {
		return nil
	}

	vars := j.Vars

	jobType, err := placeholder.Format(j.Type, vars)
	if err != nil {
		return j.substitutionFailed("type", err)
	}

	meta, err := placeholder.Substitute(j.Meta, vars)
	if err != nil {
		return j.substitutionFailed("meta", err)
	}

	resolvedVars, err := placeholder.Substitute(placeholder.From(vars), vars)
	if err != nil {
		return j.substitutionFailed("vars", err)
	}

	var bags [categoryCount][]Bit
	for _, c := range Categories {
		for i, bit := range j.bags[c].bits {
			data, err := placeholder.Substitute(bit.Data, vars)
			if err != nil {
				return j.substitutionFailed(fmt.Sprintf("%s[%d] '%s'", c, i, bit.Name), err)
			}
			bags[c] = append(bags[c], Bit{Category: c, Name: bit.Name, Data: data})
		}
	}

	j.Type = jobType
	j.Meta = meta.(placeholder.Map)
	j.Vars = resolvedVars.Interface().(map[string]any)
	for _, c := range Categories {
		j.bags[c].bits = bags[c]
	}
	j.formatted = true
	return nil
}

func (j *Job) substitutionFailed(attribute string, err error) error {
	logging.Error("Job", err, "Error while parsing job '%s'->'%s'", j.ID, attribute)
	return fmt.Errorf("job '%s' -> '%s': %w", j.ID, attribute, err)
}
