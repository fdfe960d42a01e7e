// Package cmd implements the jenkey command line: sync, plan, render,
// config and version.
package cmd
