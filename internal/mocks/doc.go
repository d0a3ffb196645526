// Package mocks provides centralized mock implementations for testing.
//
// Each mock mirrors a store or collaborator interface with two layers:
// function fields (XxxFn) for per-test overrides, and an in-memory
// default implementation backed by maps so most tests need no setup
// beyond seeding data. The task mock guards its state with a mutex, so
// concurrent-claim tests exercise real contention.
package mocks
