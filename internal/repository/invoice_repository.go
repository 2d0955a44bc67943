package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/clustershield/clustershield/internal/model"
)

// InvoiceRepo allocates invoice numbers and persists invoices.
//
// Numbering must be gap-free and strictly increasing per prefix under
// concurrent purchases. A read-max-then-insert scheme races: two writers
// read the same max and both insert max+1. Allocation is therefore a
// single atomic counter upsert on invoice_counters — the storage engine
// serializes the row update, so concurrent callers each observe a distinct
// value. The UNIQUE(invoice_prefix, invoice_number) key on invoices is
// kept as a backstop and maps to ErrInvoiceNumberTaken.
type InvoiceRepo struct{ DB *sql.DB }

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{DB: db} }

// PrefixForYear composes the invoice prefix for a billing year, e.g.
// "FR25" for 2025.
func PrefixForYear(year int) string {
	return fmt.Sprintf("FR%02d", year%100)
}

// FullNumber renders the customer-facing invoice number, e.g. "FR25-0001".
func FullNumber(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// NextNumberTx reserves the next invoice number for a prefix inside tx.
// The LAST_INSERT_ID wrapping makes the allocated value readable from the
// driver for both the first allocation (seq=1) and every increment after.
func (r *InvoiceRepo) NextNumberTx(ctx context.Context, tx *sql.Tx, prefix string) (int, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO invoice_counters (prefix, seq) VALUES (?, LAST_INSERT_ID(1)) ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)",
		prefix)
	if err != nil {
		return 0, err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Issue allocates the next number for the current year's prefix and
// persists a paid invoice, all in one transaction. The rest of the engine
// sees number allocation and insertion as a single indivisible operation.
func (r *InvoiceRepo) Issue(ctx context.Context, serviceID, userID uint64, amountPaidCents int64, paymentMethod string, now time.Time) (model.Invoice, error) {
	prefix := PrefixForYear(now.Year())

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Invoice{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	number, err := r.NextNumberTx(ctx, tx, prefix)
	if err != nil {
		return model.Invoice{}, err
	}

	inv := model.Invoice{
		ServiceID:         serviceID,
		UserID:            userID,
		InvoicePrefix:     prefix,
		InvoiceNumber:     number,
		FullInvoiceNumber: FullNumber(prefix, number),
		PriceCents:        amountPaidCents,
		PaymentMethod:     paymentMethod,
		PaymentDate:       now,
		Status:            model.InvoicePaid,
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (service_id, user_id, invoice_prefix, invoice_number, full_invoice_number,
		  price_cents, payment_method, payment_date, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		inv.ServiceID, inv.UserID, inv.InvoicePrefix, inv.InvoiceNumber, inv.FullInvoiceNumber,
		inv.PriceCents, inv.PaymentMethod, inv.PaymentDate, inv.Status)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Invoice{}, ErrInvoiceNumberTaken
		}
		return model.Invoice{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Invoice{}, err
	}
	inv.ID = uint64(id)

	if err := tx.Commit(); err != nil {
		return model.Invoice{}, err
	}
	committed = true
	return inv, nil
}

// ListByUser returns an account's invoices, newest first.
func (r *InvoiceRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, service_id, user_id, invoice_prefix, invoice_number, full_invoice_number,
		  price_cents, payment_method, payment_date, status, created_at
		 FROM invoices WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.ServiceID, &inv.UserID, &inv.InvoicePrefix, &inv.InvoiceNumber,
			&inv.FullInvoiceNumber, &inv.PriceCents, &inv.PaymentMethod, &inv.PaymentDate, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
