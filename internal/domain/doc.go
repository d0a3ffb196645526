// Package domain contains the core entities of the task lifecycle engine:
// tasks with their status state machine, users with roles derived from
// configuration, and append-only audit events.
//
// Entities validate themselves and encode the legal lifecycle transitions,
// but know nothing about persistence or scheduling; those concerns live in
// the store and scheduler packages respectively.
package domain
