// Package remote defines the handle jenkey uses to talk to the automation
// server it keeps in sync.
//
// Two implementations live in sub-packages:
//
//   - jenkins: the Jenkins REST API over HTTP
//   - directory: a local directory tree, used for dry runs and `jenkey render`
//
// The in-memory recording server in internal/testing/mock implements the same
// interface for tests.
package remote
