package model

import "time"

// Invoice status values stored in invoices.status.
const (
	InvoiceUnpaid = 0
	InvoicePaid   = 1
)

// Invoice is an immutable billing record created on every paid purchase or
// renewal.  For a fixed prefix the invoice numbers form a gap-free strictly
// increasing sequence starting at 1; `(prefix, number)` is unique.
//
// Fields:
//  ID                – primary key identifier.
//  ServiceID         – service the payment was for.
//  UserID            – paying account.
//  InvoicePrefix     – e.g. "FR25" ("FR" + last two digits of the year).
//  InvoiceNumber     – strictly increasing within the prefix.
//  FullInvoiceNumber – prefix + "-" + zero-padded number, e.g. "FR25-0001".
//  PriceCents        – amount invoiced.
//  PaymentMethod     – method reported by the payment processor.
//  PaymentDate       – date of payment.
//  Status            – InvoiceUnpaid or InvoicePaid.
//  CreatedAt         – creation timestamp.
type Invoice struct {
    ID                uint64    // invoices.id
    ServiceID         uint64    // invoices.service_id
    UserID            uint64    // invoices.user_id
    InvoicePrefix     string    // invoices.invoice_prefix
    InvoiceNumber     int       // invoices.invoice_number
    FullInvoiceNumber string    // invoices.full_invoice_number
    PriceCents        int64     // invoices.price_cents
    PaymentMethod     string    // invoices.payment_method
    PaymentDate       time.Time // invoices.payment_date
    Status            int       // invoices.status
    CreatedAt         time.Time // invoices.created_at
}
