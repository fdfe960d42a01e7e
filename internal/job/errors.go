package job

import (
	"errors"
	"fmt"

	"jenkey/internal/render"
)

// TemplateRenderError reports a failure to render one bit or the type
// template of a job. Err is the underlying render error, which may be a
// *render.TemplateNotFoundError.
type TemplateRenderError struct {
	JobID    string
	Category string
	Name     string
	// Data is the offending bit payload, nil for the type template.
	Data any
	Err  error
}

func (e *TemplateRenderError) Error() string {
	what := "bit"
	if e.Category == jobTypesDir {
		what = "job template"
	}

	var notFound *render.TemplateNotFoundError
	if errors.As(e.Err, &notFound) {
		return fmt.Sprintf("failed to find %s '%s/%s' for job '%s': %v", what, e.Category, e.Name, e.JobID, e.Err)
	}
	return fmt.Sprintf("failed to render %s '%s/%s' in job '%s': %v", what, e.Category, e.Name, e.JobID, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

// ViewRenderError reports a failure to render a project's view.
type ViewRenderError struct {
	View string
	Err  error
}

func (e *ViewRenderError) Error() string {
	return fmt.Sprintf("failed to render view '%s': %v", e.View, e.Err)
}

func (e *ViewRenderError) Unwrap() error { return e.Err }

// DuplicateError reports a project or job id defined twice in a State.
type DuplicateError struct {
	Kind    string
	Name    string
	Project string
}

func (e *DuplicateError) Error() string {
	if e.Project != "" {
		return fmt.Sprintf("%s '%s' is already defined by project '%s'", e.Kind, e.Name, e.Project)
	}
	return fmt.Sprintf("%s '%s' is already defined", e.Kind, e.Name)
}
