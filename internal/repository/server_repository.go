package repository

import (
	"context"
	"database/sql"

	"github.com/clustershield/clustershield/internal/model"
)

// ServerRepo reads the fleet inventory. Servers are read-mostly; this
// engine only references them as placement targets.
type ServerRepo struct{ DB *sql.DB }

func NewServerRepo(db *sql.DB) *ServerRepo { return &ServerRepo{DB: db} }

// GetByID fetches a single server.
func (r *ServerRepo) GetByID(ctx context.Context, id uint64) (model.Server, error) {
	var s model.Server
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, ip, hostname FROM servers WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.IP, &s.Hostname)
	return s, err
}

// PickLeastLoaded returns the server hosting the fewest clusters. Load is a
// live COUNT over the clusters table, not a stored counter, so placement
// can never act on a drifted number. Returns ErrNoServerAvailable when the
// fleet is empty. Ties break on the lowest id for determinism.
func (r *ServerRepo) PickLeastLoaded(ctx context.Context) (model.Server, error) {
	var s model.Server
	err := r.DB.QueryRowContext(ctx,
		`SELECT s.id, s.ip, s.hostname
		 FROM servers s
		 LEFT JOIN clusters c ON c.server_id = s.id
		 GROUP BY s.id, s.ip, s.hostname
		 ORDER BY COUNT(c.id) ASC, s.id ASC
		 LIMIT 1`).
		Scan(&s.ID, &s.IP, &s.Hostname)
	if err == sql.ErrNoRows {
		return model.Server{}, ErrNoServerAvailable
	}
	if err != nil {
		return model.Server{}, err
	}
	return s, nil
}
