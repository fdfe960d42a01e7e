package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jenkey/internal/job"
	"jenkey/internal/placeholder"
)

const webManifest = `
vars:
  project_name: web
  repo: git@host:web.git
jobs:
  - id: web-build
    type: freestyle
    meta: {owner: team-a}
    vars: {branch: main, min_build_number: 100}
    scms:
      - git: {url: "{repo}", branch: "{branch}"}
    builders:
      - shell: {command: make}
      - shell: !tuple ["literal", "{kept}"]
      - clean-workspace
  - id: web-test
`

func TestParse(t *testing.T) {
	p, err := Parse("web.yaml", []byte(webManifest))
	require.NoError(t, err)

	assert.Equal(t, "web", p.Name())
	assert.Equal(t, []string{"web-build", "web-test"}, p.IDs())

	j, ok := p.Job("web-build")
	require.True(t, ok)
	assert.Equal(t, "freestyle", j.Type)
	assert.Equal(t, placeholder.String("team-a"), j.Meta["owner"])
	assert.Equal(t, "main", j.Vars["branch"])
	assert.Equal(t, 100, j.Vars[job.MinBuildNumberVar])

	scms := j.Bits(job.SCMs)
	require.Len(t, scms, 1)
	assert.Equal(t, "git", scms[0].Name)
	assert.Equal(t, placeholder.Map{
		"url":    placeholder.String("{repo}"),
		"branch": placeholder.String("{branch}"),
	}, scms[0].Data)

	builders := j.Bits(job.Builders)
	require.Len(t, builders, 3)
	assert.Equal(t, "shell", builders[0].Name)
	assert.Equal(t, placeholder.Tuple{placeholder.String("literal"), placeholder.String("{kept}")}, builders[1].Data)
	assert.Equal(t, "clean-workspace", builders[2].Name)

	other, ok := p.Job("web-test")
	require.True(t, ok)
	assert.Equal(t, job.DefaultType, other.Type)
}

func TestParse_SubstitutionKeepsTuples(t *testing.T) {
	p, err := Parse("web.yaml", []byte(webManifest))
	require.NoError(t, err)

	jobs, err := p.Jobs()
	require.NoError(t, err)

	j := jobs[0]
	assert.Equal(t, map[string]any{"url": "git@host:web.git", "branch": "main"}, j.Bits(job.SCMs)[0].Data.Interface())
	assert.Equal(t, []any{"literal", "{kept}"}, j.Bits(job.Builders)[1].Data.Interface())

	n, ok := j.MinBuildNumber()
	require.True(t, ok)
	assert.Equal(t, 100, n)
}

func TestParse_Scalars(t *testing.T) {
	p, err := Parse("s.yaml", []byte(`
vars:
  project_name: s
  quoted_number: "42"
  number: 42
  flag: true
  empty: ~
jobs: []
`))
	require.NoError(t, err)
	assert.Equal(t, "42", p.Vars["quoted_number"])
	assert.Equal(t, 42, p.Vars["number"])
	assert.Equal(t, true, p.Vars["flag"])
	assert.Nil(t, p.Vars["empty"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantMsg  string
	}{
		{"empty", "", 0, "empty manifest"},
		{"not a mapping", "- a\n- b\n", 1, "must be a mapping"},
		{"unknown top-level key", "vars: {}\nprojects: []\n", 2, "unknown key 'projects'"},
		{"jobs not a list", "jobs: {a: b}\n", 1, "'jobs' must be a list"},
		{"missing id", "jobs:\n  - type: x\n", 2, "missing an id"},
		{"unknown job key", "jobs:\n  - id: a\n    steps: []\n", 3, "unknown job key 'steps'"},
		{"bag not a list", "jobs:\n  - id: a\n    builders: {shell: x}\n", 3, "'builders' must be a list"},
		{"multi-key bit", "jobs:\n  - id: a\n    builders:\n      - {shell: x, git: y}\n", 4, "exactly one name"},
		{"duplicate key", "vars: {a: 1, a: 2}\n", 1, "duplicate key 'a'"},
		{"vars not a mapping", "vars: [a]\n", 1, "expected a mapping"},
		{"invalid yaml", "vars: [\n", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(tt.input))
			require.Error(t, err)
			assert.True(t, IsError(err))

			var merr *Error
			require.True(t, errors.As(err, &merr))
			assert.Equal(t, "bad.yaml", merr.File)
			if tt.wantLine > 0 {
				assert.Equal(t, tt.wantLine, merr.Line)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-api.yml", "vars: {project_name: api}\njobs:\n  - id: api-build\n")
	writeFile(t, dir, "a-web.yaml", "vars: {project_name: web}\njobs:\n  - id: web-build\n  - id: web-test\n")
	writeFile(t, dir, "README.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))

	state, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, state.Len())
	assert.Equal(t, 3, state.JobCount())

	var names []string
	for _, p := range state.Projects() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"web", "api"}, names)
	assert.Equal(t, []string{"api-build", "web-build", "web-test"}, state.JobIDs())
}

func TestLoadDir_DuplicateJobIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "vars: {project_name: a}\njobs:\n  - id: shared\n")
	writeFile(t, dir, "b.yaml", "vars: {project_name: b}\njobs:\n  - id: shared\n")

	_, err := LoadDir(dir)
	var dup *job.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "shared", dup.Name)
	assert.Equal(t, "a", dup.Project)
	assert.Contains(t, err.Error(), "b.yaml")
}

func TestLoadDir_DuplicateProjects(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "jobs:\n  - id: one\n")
	writeFile(t, dir, "b.yaml", "jobs:\n  - id: two\n")

	_, err := LoadDir(dir)
	var dup *job.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, job.DefaultProjectName, dup.Name)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
