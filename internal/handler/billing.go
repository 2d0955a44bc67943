package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clustershield/clustershield/internal/model"
	"github.com/clustershield/clustershield/internal/queue"
	"github.com/clustershield/clustershield/internal/repository"
	queue_publisher "github.com/clustershield/clustershield/internal/service"
)

// BillingHandler drives the service lifecycle: purchases, renewals and the
// read surfaces around them (offers, services, invoices). Payment capture
// itself happens upstream at the trusted payment processor; the client
// reports the paid amount, method and processor order reference.
type BillingHandler struct {
	Offers   *repository.OfferRepo
	Services *repository.ServiceRepo
	Invoices *repository.InvoiceRepo
	Clusters *repository.ClusterRepo
}

func NewBillingHandler(o *repository.OfferRepo, s *repository.ServiceRepo, i *repository.InvoiceRepo, c *repository.ClusterRepo) *BillingHandler {
	if o == nil || s == nil || i == nil || c == nil {
		panic("nil repository passed to NewBillingHandler")
	}
	return &BillingHandler{Offers: o, Services: s, Invoices: i, Clusters: c}
}

type purchaseReq struct {
	OfferID         uint64 `json:"offer_id"`
	DurationMonths  int    `json:"duration_months"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
	PaymentMethod   string `json:"payment_method"`
	OrderRef        string `json:"order_ref"`
}

type renewReq struct {
	DurationMonths  int    `json:"duration_months"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
	PaymentMethod   string `json:"payment_method"`
	OrderRef        string `json:"order_ref"`
}

// ListOffers handles GET /v1/offers. The catalogue is public read-only
// input to purchasing.
func (h *BillingHandler) ListOffers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	offers, err := h.Offers.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(offers))
	for _, o := range offers {
		out = append(out, echo.Map{
			"id": o.ID, "name": o.Name, "price_cents": o.PriceCents,
			"period": o.Period, "feature_flags": o.FeatureFlags, "description": o.Description,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": out})
}

// Purchase handles POST /v1/services. It snapshots the offer onto a new
// service row, issues the invoice and fires the payment notifications.
// The notification publish is best-effort in a detached goroutine: its
// failure never fails or rolls back the purchase.
func (h *BillingHandler) Purchase(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OfferID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "offer_id required"})
	}
	if req.AmountPaidCents < 0 || req.PaymentMethod == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment details required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	offer, err := h.Offers.GetByID(ctx, req.OfferID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := time.Now().UTC()
	svc := model.Service{
		UserID:  user.ID,
		OfferID: offer.ID,
		// Offer snapshot: later catalogue edits never touch this service.
		Name:         offer.Name,
		PriceCents:   offer.PriceCents,
		FeatureFlags: offer.FeatureFlags,
		Description:  offer.Description,

		PricePaidCents: req.AmountPaidCents,
		PaymentDate:    now,
		Active:         true,
	}
	if offer.Period == model.PeriodLifetime {
		svc.IsLifetime = true // expires_at stays NULL forever
	} else {
		if req.DurationMonths <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_months required"})
		}
		exp := now.AddDate(0, req.DurationMonths, 0)
		svc.ExpiresAt = &exp
		svc.DurationMonths = req.DurationMonths
	}

	if err := h.Services.Create(ctx, &svc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "purchase failed"})
	}

	inv, err := h.Invoices.Issue(ctx, svc.ID, user.ID, req.AmountPaidCents, req.PaymentMethod, now)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNumberTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "invoice conflict"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invoice failed"})
	}

	h.notifyInvoicePaid("purchase", svc, inv, user.Email)

	return c.JSON(http.StatusCreated, echo.Map{
		"service": toServiceResp(svc),
		"invoice": toInvoiceResp(inv),
	})
}

// Renew handles POST /v1/services/:id/renew. Ownership is enforced by the
// owner-scoped lookup: a non-owner gets the same 404 as a missing id, so
// renewal probes cannot confirm other accounts' service ids. The new
// expiry extends from the current one while it is still in the future and
// restarts from now once it has passed; a renewal always reactivates.
func (h *BillingHandler) Renew(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	var req renewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AmountPaidCents < 0 || req.PaymentMethod == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment details required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	svc, err := h.Services.GetForUser(ctx, id, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := time.Now().UTC()
	var newExpiry *time.Time
	if !svc.IsLifetime {
		if req.DurationMonths <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_months required"})
		}
		exp := model.NextExpiry(now, svc.ExpiresAt, req.DurationMonths)
		newExpiry = &exp
		svc.DurationMonths = req.DurationMonths
	}

	if err := h.Services.Renew(ctx, svc.ID, newExpiry, req.AmountPaidCents, now); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "renewal failed"})
	}
	svc.ExpiresAt = newExpiry
	svc.Active = true
	svc.PricePaidCents = req.AmountPaidCents
	svc.PaymentDate = now

	inv, err := h.Invoices.Issue(ctx, svc.ID, user.ID, req.AmountPaidCents, req.PaymentMethod, now)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNumberTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "invoice conflict"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invoice failed"})
	}

	h.notifyInvoicePaid("renewal", svc, inv, user.Email)

	return c.JSON(http.StatusOK, echo.Map{
		"service": toServiceResp(svc),
		"invoice": toInvoiceResp(inv),
	})
}

// ListServices handles GET /v1/services.
func (h *BillingHandler) ListServices(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	services, err := h.Services.ListByUser(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]serviceResp, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"services": out})
}

// GetService handles GET /v1/services/:id. The response carries the
// tagged cluster view: {"status":"NOT_INSTALLED"} or
// {"status":"INSTALLED","cluster":{...}} — callers never have to infer
// provisioning state from nullable fields.
func (h *BillingHandler) GetService(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	svc, err := h.Services.GetForUser(ctx, id, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	clusterView := echo.Map{"status": "NOT_INSTALLED"}
	cl, err := h.Clusters.GetByServiceID(ctx, svc.ID)
	switch {
	case err == nil:
		clusterView = echo.Map{"status": "INSTALLED", "cluster": toClusterResp(cl, false)}
	case err == sql.ErrNoRows:
		// no cluster yet
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"service": toServiceResp(svc),
		"cluster": clusterView,
	})
}

// ListInvoices handles GET /v1/invoices.
func (h *BillingHandler) ListInvoices(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	invoices, err := h.Invoices.ListByUser(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]invoiceResp, 0, len(invoices))
	for _, i := range invoices {
		out = append(out, toInvoiceResp(i))
	}
	return c.JSON(http.StatusOK, echo.Map{"invoices": out})
}

// notifyInvoicePaid hands the payment confirmation to the notification
// queue on a detached goroutine with its own deadline. Publish errors are
// logged inside the publisher and swallowed here.
func (h *BillingHandler) notifyInvoicePaid(kind string, svc model.Service, inv model.Invoice, email string) {
	ev := queue.InvoicePaidEvent{
		EventID:           uuid.NewString(),
		Kind:              kind,
		InvoiceID:         inv.ID,
		FullInvoiceNumber: inv.FullInvoiceNumber,
		ServiceID:         svc.ID,
		ServiceName:       svc.Name,
		UserID:            svc.UserID,
		Email:             email,
		AmountCents:       inv.PriceCents,
		PaymentMethod:     inv.PaymentMethod,
		PaidAt:            inv.PaymentDate.Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishInvoicePaid(ctx, ev)
	}()
}
