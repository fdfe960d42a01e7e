// Package manifest loads the desired job.State from YAML files.
//
// Each file describes one project:
//
//	vars:
//	  project_name: web
//	  repo: git@host:web.git
//	jobs:
//	  - id: web-build
//	    type: freestyle
//	    vars: {branch: main, min_build_number: 100}
//	    scms:
//	      - git: {url: "{repo}", branch: "{branch}"}
//	    builders:
//	      - shell: {command: make}
//	      - shell: !tuple ["literal", "{kept}"]
//
// Component bags are lists of single-key mappings so their order is kept.
// A bare name adds a bit without data. Sequences tagged !tuple decode to
// placeholder.Tuple and their strings are never substituted.
package manifest
