package handler

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clustershield/clustershield/internal/model"
)

// errNoUser indicates the session middleware did not run or did not store
// the authenticated user; handlers translate it into a 401.
var errNoUser = errors.New("no authenticated user in context")

// currentUser pulls the authenticated user stored by the SessionAuth
// middleware out of the request context.
func currentUser(c echo.Context) (model.User, error) {
	u, ok := c.Get("user").(model.User)
	if !ok || u.ID == 0 {
		return model.User{}, errNoUser
	}
	return u, nil
}

// ----- shared response DTOs -----

type serviceResp struct {
	ID             uint64     `json:"id"`
	OfferID        uint64     `json:"offer_id"`
	Name           string     `json:"name"`
	PriceCents     int64      `json:"price_cents"`
	FeatureFlags   string     `json:"feature_flags"`
	Description    string     `json:"description"`
	PricePaidCents int64      `json:"price_paid_cents"`
	PaymentDate    time.Time  `json:"payment_date"`
	DurationMonths int        `json:"duration_months"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsLifetime     bool       `json:"is_lifetime"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toServiceResp(s model.Service) serviceResp {
	return serviceResp{
		ID: s.ID, OfferID: s.OfferID, Name: s.Name,
		PriceCents: s.PriceCents, FeatureFlags: s.FeatureFlags, Description: s.Description,
		PricePaidCents: s.PricePaidCents, PaymentDate: s.PaymentDate,
		DurationMonths: s.DurationMonths, ExpiresAt: s.ExpiresAt,
		IsLifetime: s.IsLifetime, Active: s.Active, CreatedAt: s.CreatedAt,
	}
}

type invoiceResp struct {
	ID                uint64    `json:"id"`
	ServiceID         uint64    `json:"service_id"`
	FullInvoiceNumber string    `json:"full_invoice_number"`
	PriceCents        int64     `json:"price_cents"`
	PaymentMethod     string    `json:"payment_method"`
	PaymentDate       time.Time `json:"payment_date"`
	Status            int       `json:"status"`
}

func toInvoiceResp(i model.Invoice) invoiceResp {
	return invoiceResp{
		ID: i.ID, ServiceID: i.ServiceID, FullInvoiceNumber: i.FullInvoiceNumber,
		PriceCents: i.PriceCents, PaymentMethod: i.PaymentMethod,
		PaymentDate: i.PaymentDate, Status: i.Status,
	}
}

// clusterResp deliberately omits the agent token: it is a shared secret
// between the engine and the agent, not customer data.
type clusterResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

func toClusterResp(cl model.Cluster, withPassword bool) clusterResp {
	out := clusterResp{ID: cl.ID, Name: cl.Name, URL: cl.URL, Username: cl.Username}
	if withPassword {
		out.Password = cl.Password
	}
	return out
}
