package model

// Server is an inventory entry for a host capable of running clusters via
// its agent.  Load is derived at read time by counting the clusters that
// reference a server; it is deliberately not stored as a column so there is
// no second source of truth to drift.
type Server struct {
	ID       uint64 // servers.id
	IP       string // servers.ip
	Hostname string // servers.hostname
}
