package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/clustershield/clustershield/internal/model"
)

// ClusterRepo persists provisioning records. A service owns at most one
// cluster; the unique key on clusters.service_id is the backstop against
// double-install races that slip past the handler's pre-check.
type ClusterRepo struct{ DB *sql.DB }

func NewClusterRepo(db *sql.DB) *ClusterRepo { return &ClusterRepo{DB: db} }

const clusterColumns = "id,service_id,server_id,name,url,token,username,password,created_at"

// Create inserts a cluster row after a successful remote install and
// populates the generated ID. A duplicate service_id maps to
// ErrClusterExists so a concurrent duplicate attempt surfaces as a
// conflict rather than a generic failure.
func (r *ClusterRepo) Create(ctx context.Context, c *model.Cluster) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO clusters (service_id, server_id, name, url, token, username, password) VALUES (?,?,?,?,?,?,?)",
		c.ServiceID, c.ServerID, c.Name, c.URL, c.Token, c.Username, c.Password)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrClusterExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByServiceID fetches the cluster backing a service, if any. Callers
// treat sql.ErrNoRows as the NOT_INSTALLED state.
func (r *ClusterRepo) GetByServiceID(ctx context.Context, serviceID uint64) (model.Cluster, error) {
	var c model.Cluster
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+clusterColumns+" FROM clusters WHERE service_id=? LIMIT 1", serviceID).
		Scan(&c.ID, &c.ServiceID, &c.ServerID, &c.Name, &c.URL, &c.Token, &c.Username, &c.Password, &c.CreatedAt)
	return c, err
}
