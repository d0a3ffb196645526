// Package postgres provides PostgreSQL implementations of the store
// interfaces, driven through database/sql over the pgx stdlib driver.
// All database errors pass through MapError so callers only ever see
// store-level sentinel errors, and every status mutation is a conditional
// update whose affected-row count exposes lost races to the caller.
package postgres
