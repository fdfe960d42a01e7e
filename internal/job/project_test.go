package job

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jenkey/internal/placeholder"
	"jenkey/internal/render"
)

func testEngine() *render.Engine {
	return render.New([]render.Root{{Name: "memory", FS: fstest.MapFS{
		"jobtypes/default.tmpl": {Data: []byte(
			`<project id="{{ .id }}" type="{{ .type }}" owner="{{ .meta.owner }}">` +
				`<scm>{{ range .scms }}{{ . }}{{ end }}</scm>` +
				`<builders>{{ range .builders }}{{ . }}{{ end }}</builders>` +
				`<publishers>{{ len .publishers }}</publishers>` +
				`<branch>{{ .branch }}</branch>` +
				`</project>`)},
		"jobtypes/override.tmpl": {Data: []byte(`{{ .id }}`)},
		"scms/git.tmpl":          {Data: []byte(`<git url="{{ .url }}"/>`)},
		"builders/shell.tmpl":    {Data: []byte(`<shell>{{ xml .command }}</shell>`)},
		"builders/raw.tmpl":      {Data: []byte(`<raw>{{ .value }}</raw>`)},
		"builders/strict.tmpl":   {Data: []byte(`{{ .required }}`)},
		"views/project.tmpl":     {Data: []byte(`<view name="{{ .name }}">{{ range .jobs }}<job>{{ . }}</job>{{ end }}</view>`)},
	}}})
}

func TestProject_Name(t *testing.T) {
	assert.Equal(t, "web", NewProject(map[string]any{ProjectNameVar: "web"}).Name())
	assert.Equal(t, DefaultProjectName, NewProject(nil).Name())
	assert.Equal(t, DefaultProjectName, NewProject(map[string]any{ProjectNameVar: ""}).Name())
}

func TestProject_VariablePrecedence(t *testing.T) {
	p := NewProject(map[string]any{"a": "1"})
	p.AddJob("job", WithVars(map[string]any{"a": "2", "b": "3"}))

	jobs, err := p.Jobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, map[string]any{"a": "2", "b": "3"}, jobs[0].Vars)

	// Repeated calls are stable.
	jobs, err = p.Jobs()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "2", "b": "3"}, jobs[0].Vars)
}

func TestProject_ProjectVarsAreDefaults(t *testing.T) {
	p := NewProject(map[string]any{"repo": "git@host:web.git", "branch": "main"})
	p.AddJob("web-release", WithVars(map[string]any{"branch": "release"})).
		Add(SCMs, "git", map[string]any{"url": "{repo}#{branch}"})

	jobs, err := p.Jobs()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "git@host:web.git#release"}, jobs[0].Bits(SCMs)[0].Data.Interface())
}

func TestProject_JobsKeepInsertionOrder(t *testing.T) {
	p := NewProject(nil)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		p.AddJob(id)
	}
	p.AddJob("alpha", WithType("replaced"))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, p.IDs())
	assert.Equal(t, 3, p.Len())

	j, ok := p.Job("alpha")
	require.True(t, ok)
	assert.Equal(t, "replaced", j.Type)
}

func TestJob_Render(t *testing.T) {
	p := NewProject(map[string]any{"repo": "git@host:web.git", "branch": "main"})
	j := p.AddJob("web-build", WithMeta(map[string]any{"owner": "team-a"})).
		Add(SCMs, "git", map[string]any{"url": "{repo}"}).
		Add(Builders, "shell", map[string]any{"command": "make && make {branch}"}).
		Add(Builders, "raw", "plain {branch}")

	_, err := p.Jobs()
	require.NoError(t, err)

	doc, err := j.Render(testEngine())
	require.NoError(t, err)
	assert.Equal(t,
		`<project id="web-build" type="default" owner="team-a">`+
			`<scm><git url="git@host:web.git"/></scm>`+
			`<builders><shell>make &amp;&amp; make main</shell><raw>plain main</raw></builders>`+
			`<publishers>0</publishers>`+
			`<branch>main</branch>`+
			`</project>`, doc)
}

func TestJob_RenderVarsOverrideStructuralKeys(t *testing.T) {
	j := New("real-id", WithType("override"), WithVars(map[string]any{"id": "from-vars"}))

	doc, err := j.Render(testEngine())
	require.NoError(t, err)
	assert.Equal(t, "from-vars", doc)
}

func TestJob_RenderResolvesLazily(t *testing.T) {
	j := New("x", WithType("override"))
	assert.False(t, j.Formatted())

	_, err := j.Render(testEngine())
	require.NoError(t, err)
	assert.True(t, j.Formatted())
}

func TestJob_RenderMissingBitTemplate(t *testing.T) {
	j := New("web-build").Add(Publishers, "mailer", map[string]any{"to": "dev@example.com"})

	_, err := j.Render(testEngine())
	require.Error(t, err)

	var renderErr *TemplateRenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "web-build", renderErr.JobID)
	assert.Equal(t, "publishers", renderErr.Category)
	assert.Equal(t, "mailer", renderErr.Name)
	assert.Equal(t, map[string]any{"to": "dev@example.com"}, renderErr.Data)

	var notFound *render.TemplateNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "publishers/mailer.tmpl", notFound.Path)
	assert.Equal(t, []string{"memory"}, notFound.SearchPath)
	assert.True(t, IsTemplateNotFound(err))
	assert.Contains(t, err.Error(), "failed to find bit 'publishers/mailer'")
}

func TestJob_RenderUndefinedBitVariable(t *testing.T) {
	j := New("web-build").Add(Builders, "strict", map[string]any{})

	_, err := j.Render(testEngine())

	var undefined *render.UndefinedError
	require.True(t, errors.As(err, &undefined))
	assert.False(t, IsTemplateNotFound(err))
	assert.Contains(t, err.Error(), "failed to render bit 'builders/strict' in job 'web-build'")
}

func TestJob_RenderMissingJobType(t *testing.T) {
	j := New("web-build", WithType("matrix"))

	_, err := j.Render(testEngine())

	var renderErr *TemplateRenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "jobtypes", renderErr.Category)
	assert.Equal(t, "matrix", renderErr.Name)
	assert.True(t, IsTemplateNotFound(err))
	assert.Contains(t, err.Error(), "failed to find job template 'jobtypes/matrix'")
}

func TestJob_RenderSubstitutionFailureProducesNoDocument(t *testing.T) {
	j := New("x", WithType("override")).Add(Builders, "shell", map[string]any{"command": "{missing}"})

	doc, err := j.Render(testEngine())
	assert.Empty(t, doc)

	var subErr *placeholder.SubstitutionError
	assert.True(t, errors.As(err, &subErr))
}

func TestProject_View(t *testing.T) {
	p := NewProject(map[string]any{ProjectNameVar: "web"})
	p.AddJob("web-build")
	p.AddJob("web-deploy")

	name, doc, err := p.View(testEngine())
	require.NoError(t, err)
	assert.Equal(t, "web", name)
	assert.Equal(t, `<view name="web"><job>web-build</job><job>web-deploy</job></view>`, doc)

	for _, id := range p.IDs() {
		j, _ := p.Job(id)
		assert.True(t, j.Formatted())
	}
}

func TestProject_ViewMissingTemplate(t *testing.T) {
	engine := render.New([]render.Root{{Name: "empty", FS: fstest.MapFS{}}})

	_, _, err := NewProject(nil).View(engine)

	var viewErr *ViewRenderError
	require.True(t, errors.As(err, &viewErr))
	assert.Equal(t, DefaultProjectName, viewErr.View)
	assert.True(t, IsTemplateNotFound(err))
}

func TestState(t *testing.T) {
	s := NewState()

	web := NewProject(map[string]any{ProjectNameVar: "web"})
	web.AddJob("web-build")
	web.AddJob("web-deploy")
	api := NewProject(map[string]any{ProjectNameVar: "api"})
	api.AddJob("api-build")

	require.NoError(t, s.Add(web))
	require.NoError(t, s.Add(api))

	var dup *DuplicateError
	require.True(t, errors.As(s.Add(NewProject(map[string]any{ProjectNameVar: "web"})), &dup))
	assert.Equal(t, "project", dup.Kind)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.JobCount())
	assert.Equal(t, []string{"api-build", "web-build", "web-deploy"}, s.JobIDs())
	assert.Equal(t, []*Project{web, api}, s.Projects())
	require.NoError(t, s.Validate())

	got, ok := s.Project("api")
	require.True(t, ok)
	assert.Same(t, api, got)

	api.AddJob("web-build")
	err := s.Validate()
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "job", dup.Kind)
	assert.Equal(t, "web-build", dup.Name)
	assert.Equal(t, "web", dup.Project)
}
