package job

import (
	"errors"
	"path"

	"jenkey/internal/placeholder"
	"jenkey/internal/render"
	"jenkey/pkg/logging"
)

// Renderer renders a logical template path with a context. *render.Engine
// satisfies it.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

const (
	jobTypesDir  = "jobtypes"
	viewTemplate = "views/project"
)

// Render resolves placeholders if needed and renders the job document.
//
// Every bit is rendered through `<category>/<name>` first. The fragments are
// exposed to `jobtypes/<type>` under their category name next to `id`,
// `type` and `meta`; the job's variables are merged on top and win on
// collision.
func (j *Job) Render(r Renderer) (string, error) {
	if err := j.ResolvePlaceholders(); err != nil {
		return "", err
	}

	ctx := map[string]any{
		"id":   j.ID,
		"type": j.Type,
		"meta": j.Meta.Interface(),
	}

	for _, c := range Categories {
		bits := j.bags[c].bits
		fragments := make([]string, 0, len(bits))
		for _, bit := range bits {
			fragment, err := j.renderBit(r, bit)
			if err != nil {
				return "", err
			}
			fragments = append(fragments, fragment)
		}
		ctx[c.String()] = fragments
	}

	ctx = placeholder.Merge(ctx, j.Vars)

	doc, err := r.Render(path.Join(jobTypesDir, j.Type), ctx)
	if err != nil {
		renderErr := &TemplateRenderError{JobID: j.ID, Category: jobTypesDir, Name: j.Type, Err: err}
		logging.Error("Job", err, "%s", renderErr.Error())
		return "", renderErr
	}
	return doc, nil
}

func (j *Job) renderBit(r Renderer, bit Bit) (string, error) {
	data := bitContext(bit.Data)
	fragment, err := r.Render(path.Join(bit.Category.String(), bit.Name), data)
	if err != nil {
		renderErr := &TemplateRenderError{
			JobID:    j.ID,
			Category: bit.Category.String(),
			Name:     bit.Name,
			Data:     bit.Data.Interface(),
			Err:      err,
		}
		logging.Error("Job", err, "%s:\n%v", renderErr.Error(), renderErr.Data)
		return "", renderErr
	}
	return fragment, nil
}

// bitContext exposes mapping data directly; any other shape is available to
// the bit template as `.value`.
func bitContext(data placeholder.Value) map[string]any {
	if m, ok := data.(placeholder.Map); ok {
		return m.Interface().(map[string]any)
	}
	var value any
	if data != nil {
		value = data.Interface()
	}
	return map[string]any{"value": value}
}

// IsTemplateNotFound reports whether err was caused by a missing template.
func IsTemplateNotFound(err error) bool {
	var notFound *render.TemplateNotFoundError
	return errors.As(err, &notFound)
}
