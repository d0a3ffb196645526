// Package service implements the application's use cases on top of the
// store interfaces. Services own the transaction boundaries: every
// status transition and its audit event commit atomically through
// store.RunInTransaction, while notifications and reminder scheduling
// happen after commit and are best-effort.
package service
