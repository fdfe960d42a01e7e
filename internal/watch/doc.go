// Package watch reruns a callback when files under a set of directories
// change.
//
// Directories are watched recursively with fsnotify. Bursts of events are
// debounced into a single batch and callbacks never overlap, so an editor
// saving several files triggers one run.
package watch
