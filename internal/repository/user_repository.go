package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/clustershield/clustershield/internal/model"
	"github.com/clustershield/clustershield/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,first_name,last_name,address,city,zip,country,company,vat_number,created_at,updated_at"

// Create inserts a user with their billing profile and returns the new ID.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, address, city, zip, country, company, vat_number) VALUES (?,?,?,?,?,?,?,?,?,?)",
		email, hash, u.FirstName, u.LastName, u.Address, u.City, u.Zip, u.Country, u.Company, u.VATNumber)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateProfile overwrites the billing profile fields of a user. Email and
// password are managed elsewhere and are not touched here.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, address=?, city=?, zip=?, country=?, company=?, vat_number=?, updated_at=NOW() WHERE id=?",
		u.FirstName, u.LastName, u.Address, u.City, u.Zip, u.Country, u.Company, u.VATNumber, id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		company sql.NullString
		vat     sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Address, &u.City, &u.Zip, &u.Country, &company, &vat, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if company.Valid {
		v := company.String
		u.Company = &v
	}
	if vat.Valid {
		v := vat.String
		u.VATNumber = &v
	}
	return u, nil
}
