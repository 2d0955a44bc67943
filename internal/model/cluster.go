package model

import "time"

// Cluster is the provisioning record for the firewall appliance backing a
// service.  A service owns zero or one cluster (`clusters.service_id` is
// unique).  Rows are written only after a fully successful remote install;
// a failed or half-finished install persists nothing.
//
// Fields:
//  ID        – primary key identifier.
//  ServiceID – owning service (unique).
//  ServerID  – host the cluster was placed on.
//  Name      – cluster name derived from the customer domain.
//  URL       – the customer domain the cluster serves.
//  Token     – shared secret between the engine and the remote agent.
//  Username  – appliance login returned by the agent (may be empty).
//  Password  – appliance password returned by the agent (may be empty).
//  CreatedAt – creation timestamp.
type Cluster struct {
    ID        uint64    // clusters.id
    ServiceID uint64    // clusters.service_id (unique)
    ServerID  uint64    // clusters.server_id
    Name      string    // clusters.name
    URL       string    // clusters.url
    Token     string    // clusters.token
    Username  string    // clusters.username
    Password  string    // clusters.password
    CreatedAt time.Time // clusters.created_at
}
