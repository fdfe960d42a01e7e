// Package logging provides the structured logger used across jenkey.
//
// It is a thin layer over log/slog. Every record carries a subsystem
// attribute so that output from the reconciler, the template engine and the
// remote clients can be told apart when projects are pushed in parallel.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Reconciler", "Processing project '%s'", name)
//	logging.Debug("Render", "Resolved template %s from %s", path, root)
//	logging.Error("Reconciler", err, "Failed to upload job '%s'", id)
//
// # Formats
//
// InitForCLI installs a text handler. InitWithFormat accepts FormatJSON for
// log shippers that prefer one JSON object per line.
//
// Until one of the Init functions is called, records go to the default slog
// logger.
package logging
