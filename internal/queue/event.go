// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names. One durable queue per notification concern.
const (
	InvoicePaidQueue        = "billing.invoice.paid"
	InstallResultQueue      = "cluster.install.result"
	ClusterCredentialsQueue = "cluster.credentials"
)

// InvoicePaidEvent is published after every paid purchase or renewal. It
// feeds both the customer's payment confirmation email and the internal
// ops notification, and carries enough information for downstream
// consumers to act without querying the primary database.
type InvoicePaidEvent struct {
	EventID           string `json:"event_id"`
	Kind              string `json:"kind"` // "purchase" or "renewal"
	InvoiceID         uint64 `json:"invoice_id"`
	FullInvoiceNumber string `json:"full_invoice_number"`
	ServiceID         uint64 `json:"service_id"`
	ServiceName       string `json:"service_name"`
	UserID            uint64 `json:"user_id"`
	Email             string `json:"email"`
	AmountCents       int64  `json:"amount_cents"`
	PaymentMethod     string `json:"payment_method"`
	PaidAt            string `json:"paid_at"`
}

// InstallResultEvent is the operator-facing record of a cluster install
// attempt, successful or not. Failure reasons stay on this internal
// channel; end users only ever see a generic error.
type InstallResultEvent struct {
	EventID     string `json:"event_id"`
	ServiceID   uint64 `json:"service_id"`
	ServerIP    string `json:"server_ip"`
	Domain      string `json:"domain"`
	ClusterName string `json:"cluster_name"`
	Success     bool   `json:"success"`
	Reason      string `json:"reason,omitempty"`
}

// ClusterCredentialsEvent asks the mail sink to deliver appliance
// credentials to the customer after a successful install. Best-effort: a
// lost credential mail is recoverable through support, a blocked install
// response is not.
type ClusterCredentialsEvent struct {
	EventID  string `json:"event_id"`
	Email    string `json:"email"`
	Domain   string `json:"domain"`
	Username string `json:"username"`
	Password string `json:"password"`
}
