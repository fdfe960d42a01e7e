// Package job models jobs, projects and the desired state pushed to the
// remote server.
//
// A Job has a type, free-form meta, variables and seven ordered component
// bags (actions, properties, scms, triggers, builders, publishers and
// wrappers). Each bag holds bits: a name selecting the template
// `<category>/<name>` and arbitrary nested data.
//
//	p := job.NewProject(map[string]any{"project_name": "web", "repo": "git@host:web.git"})
//	p.AddJob("web-build", job.WithType("freestyle")).
//		Add(job.SCMs, "git", map[string]any{"url": "{repo}"}).
//		Add(job.Builders, "shell", map[string]any{"command": "make"})
//
// Placeholders are resolved once per job, lazily, the first time the project
// hands out its jobs or a job is rendered. A second resolution would rewrite
// values that only look like placeholders after the first pass, so the job
// keeps a formatted flag.
package job
