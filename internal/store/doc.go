// Package store defines the persistence contracts of the engine: task,
// user and event stores, the DBTX abstraction over connections and
// transactions, and the RunInTransaction helper that provides the
// exclusive write barrier required by the claim protocol and the expiry
// sweep. Concrete implementations live in platform/postgres.
package store
