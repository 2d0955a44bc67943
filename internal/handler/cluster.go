package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clustershield/clustershield/internal/agent"
	"github.com/clustershield/clustershield/internal/model"
	"github.com/clustershield/clustershield/internal/queue"
	"github.com/clustershield/clustershield/internal/repository"
	queue_publisher "github.com/clustershield/clustershield/internal/service"
	"github.com/clustershield/clustershield/internal/utils"
)

// ClusterHandler provisions and operates the firewall appliance behind a
// service. Local persistence and remote provisioning are not one atomic
// unit — there is no two-phase commit with the agent. A cluster row is
// written only after a fully successful, parsed install response, and the
// remaining window (agent succeeded, process died before the insert) is an
// operational reconciliation case, not something this engine resolves.
type ClusterHandler struct {
	Services *repository.ServiceRepo
	Servers  *repository.ServerRepo
	Clusters *repository.ClusterRepo
	Agent    *agent.Client
}

func NewClusterHandler(svc *repository.ServiceRepo, srv *repository.ServerRepo, cl *repository.ClusterRepo, ag *agent.Client) *ClusterHandler {
	if svc == nil || srv == nil || cl == nil || ag == nil {
		panic("nil dependency passed to NewClusterHandler")
	}
	return &ClusterHandler{Services: svc, Servers: srv, Clusters: cl, Agent: ag}
}

type installReq struct {
	Domain string `json:"domain"`
}

// Install handles POST /v1/services/:id/cluster. Preconditions: the
// service belongs to the caller (404 otherwise) and has no cluster yet
// (409 otherwise — and the agent is NOT called, so a duplicate attempt
// can never trigger a second remote install). On any agent failure
// nothing is persisted, the operator gets the real reason over the
// notification queue, and the caller gets a generic error.
func (h *ClusterHandler) Install(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	var req installReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	name := clusterNameFromDomain(domain)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid domain required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Agent.InstallTimeout+10*time.Second)
	defer cancel()

	svc, err := h.Services.GetForUser(ctx, id, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Pre-check before touching the agent. The unique key on
	// clusters.service_id backstops the race below.
	if _, err := h.Clusters.GetByServiceID(ctx, svc.ID); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cluster already installed"})
	} else if err != sql.ErrNoRows {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	server, err := h.Servers.PickLeastLoaded(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoServerAvailable) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "no server available"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	token, err := utils.RandomHex(24)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	result, err := h.Agent.Install(ctx, server.IP, agent.InstallRequest{
		Firstname:   user.FirstName,
		Lastname:    user.LastName,
		Email:       user.Email,
		ClusterName: name,
		Domain:      domain,
		Token:       token,
		IPAddress:   server.IP,
	})
	if err != nil {
		// Operators see the real reason; the customer sees a generic
		// failure and nothing is persisted.
		h.notifyInstall(svc.ID, server.IP, domain, name, false, installFailureReason(err, result))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "installation failed"})
	}

	cl := model.Cluster{
		ServiceID: svc.ID,
		ServerID:  server.ID,
		Name:      name,
		URL:       domain,
		Token:     token,
	}
	if result.Login != nil {
		cl.Username = result.Login.Username
		cl.Password = result.Login.Password
	}
	if err := h.Clusters.Create(ctx, &cl); err != nil {
		if errors.Is(err, repository.ErrClusterExists) {
			// Lost a double-install race after the pre-check.
			return c.JSON(http.StatusConflict, echo.Map{"error": "cluster already installed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "installation failed"})
	}

	h.notifyInstall(svc.ID, server.IP, domain, name, true, "")
	h.notifyCredentials(user.Email, domain, cl.Username, cl.Password)

	return c.JSON(http.StatusCreated, echo.Map{"cluster": toClusterResp(cl, true)})
}

// Start handles POST /v1/services/:id/cluster/start.
func (h *ClusterHandler) Start(c echo.Context) error {
	return h.proxyOp(c, func(ctx context.Context, ip, url string) (agent.OpResult, error) {
		return h.Agent.Start(ctx, ip, url)
	})
}

// Stop handles POST /v1/services/:id/cluster/stop.
func (h *ClusterHandler) Stop(c echo.Context) error {
	return h.proxyOp(c, func(ctx context.Context, ip, url string) (agent.OpResult, error) {
		return h.Agent.Stop(ctx, ip, url)
	})
}

// Status handles GET /v1/services/:id/cluster/status.
func (h *ClusterHandler) Status(c echo.Context) error {
	return h.proxyOp(c, func(ctx context.Context, ip, url string) (agent.OpResult, error) {
		return h.Agent.Status(ctx, ip, url)
	})
}

// proxyOp runs the shared ownership/lookup plumbing of start/stop/status
// and forwards the call to the agent. These calls never mutate local
// state: the agent, not the store, is the source of truth for runtime
// status, so there is no local "running" flag to flip.
func (h *ClusterHandler) proxyOp(c echo.Context, call func(ctx context.Context, serverIP, clusterURL string) (agent.OpResult, error)) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Agent.OpTimeout+5*time.Second)
	defer cancel()

	svc, err := h.Services.GetForUser(ctx, id, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	cl, err := h.Clusters.GetByServiceID(ctx, svc.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cluster not installed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	server, err := h.Servers.GetByID(ctx, cl.ServerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	result, err := call(ctx, server.IP, cl.URL)
	if err != nil {
		if errors.Is(err, agent.ErrRejected) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "operation failed"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "agent unreachable"})
	}

	out := echo.Map{"success": true}
	if result.Status != "" {
		out["status"] = result.Status
	}
	if result.Message != "" {
		out["message"] = result.Message
	}
	return c.JSON(http.StatusOK, out)
}

// clusterNameFromDomain derives the cluster name from the leftmost DNS
// label, e.g. "edge" from "edge.customer.example".
func clusterNameFromDomain(domain string) string {
	if domain == "" || strings.ContainsAny(domain, " /\\") {
		return ""
	}
	return strings.SplitN(domain, ".", 2)[0]
}

// installFailureReason renders an operator-facing reason line. Agent error
// internals stay on the internal channel only.
func installFailureReason(err error, result agent.InstallResult) string {
	switch {
	case errors.Is(err, agent.ErrRejected):
		if result.Message != "" {
			return "agent rejected install: " + result.Message
		}
		return "agent rejected install"
	case errors.Is(err, agent.ErrBadResponse):
		return "agent returned malformed response"
	default:
		return "agent unreachable: " + err.Error()
	}
}

func (h *ClusterHandler) notifyInstall(serviceID uint64, serverIP, domain, name string, success bool, reason string) {
	ev := queue.InstallResultEvent{
		EventID:     uuid.NewString(),
		ServiceID:   serviceID,
		ServerIP:    serverIP,
		Domain:      domain,
		ClusterName: name,
		Success:     success,
		Reason:      reason,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishInstallResult(ctx, ev)
	}()
}

func (h *ClusterHandler) notifyCredentials(email, domain, username, password string) {
	ev := queue.ClusterCredentialsEvent{
		EventID:  uuid.NewString(),
		Email:    email,
		Domain:   domain,
		Username: username,
		Password: password,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishClusterCredentials(ctx, ev)
	}()
}
