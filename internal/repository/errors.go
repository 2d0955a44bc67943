// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios without inspecting
// driver-specific error text. For example, ErrClusterExists signals that a
// second install was attempted for a service that already owns a cluster,
// while ErrNoServerAvailable means the fleet is empty.
package repository

import "errors"

// ErrNoSession is returned when no session row exists for a presented
// token. Handlers should translate this into an HTTP 401 response.
var ErrNoSession = errors.New("no session")

// ErrSessionExpired is returned exactly once per expired session: the
// lookup that discovers the expiry also deletes the row, so a second
// attempt with the same token yields ErrNoSession.
var ErrSessionExpired = errors.New("session expired")

// ErrEmailExists is returned when signup collides with an existing
// account email.
var ErrEmailExists = errors.New("email already exists")

// ErrClusterExists is returned when a service already owns a cluster.
// Handlers should translate this into an HTTP 409 response.
var ErrClusterExists = errors.New("cluster already installed")

// ErrNoServerAvailable is returned when no server is registered in the
// fleet and therefore no placement target exists.
var ErrNoServerAvailable = errors.New("no server available")

// ErrInvoiceNumberTaken is returned when the unique (prefix, number) key
// rejects an insert. The counter allocation makes this unreachable in
// practice; the sentinel exists so the backstop maps to a 409 rather than
// a generic failure.
var ErrInvoiceNumberTaken = errors.New("invoice number already taken")
