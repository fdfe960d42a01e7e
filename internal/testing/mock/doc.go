// Package mock provides test doubles for jenkey components.
//
// Server is an in-memory remote.Server that records every call and can be
// told to fail specific operations. It is safe for concurrent use, so one
// instance can back all workers of a parallel sync through remote.Static or
// a counting Factory.
//
// MockClock is a controllable Clock for deterministic durations in reports.
package mock
