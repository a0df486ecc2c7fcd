package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CabinBranis/fhe-ido-launchpad/identity"
	"github.com/CabinBranis/fhe-ido-launchpad/ledger"
)

// HandlerConfig configures the launchpad HTTP handler.
type HandlerConfig struct {
	// AdminToken guards the admin routes as "user:pass" basic auth
	// credentials. Empty disables the admin surface.
	AdminToken string

	Log *slog.Logger
}

// Handler maps the ledger transition API onto HTTP routes.
type Handler struct {
	registry *ledger.Registry
	config   *HandlerConfig
	log      *slog.Logger
}

// NewHandler creates a handler backed by the given registry.
func NewHandler(registry *ledger.Registry, config *HandlerConfig) *Handler {
	if config == nil {
		config = &HandlerConfig{}
	}
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		registry: registry,
		config:   config,
		log:      log,
	}
}

// RegisterPublicRoutes registers the transition and query endpoints.
func (h *Handler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/sales", h.handleCreateSale)
	router.Post("/sales/{id}/active", h.handleSetActive)
	router.Post("/sales/{id}/owner", h.handleTransferOwnership)
	router.Post("/sales/{id}/contributions", h.handleContribute)
	router.Post("/sales/{id}/finalize", h.handleFinalize)
	router.Post("/sales/{id}/claim", h.handleClaim)

	router.Get("/sales", h.handleListSales)
	router.Get("/sales/{id}", h.handleGetSale)
	router.Get("/sales/{id}/active", h.handleGetActive)
	router.Get("/sales/{id}/aggregates", h.handleGetAggregates)
	router.Get("/sales/{id}/positions/{participant}", h.handleGetPosition)
	router.Get("/events", h.handleGetEvents)
}

// RegisterAdminRoutes registers the basic-auth admin endpoints. No-op when
// no admin token is configured.
func (h *Handler) RegisterAdminRoutes(router chi.Router) {
	user, pass, ok := strings.Cut(h.config.AdminToken, ":")
	if !ok {
		return
	}

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.BasicAuth("launchpad admin", map[string]string{user: pass}))
		r.Get("/sales", h.handleListSales)
		r.Get("/sales/{id}/positions", h.handleListPositions)
		r.Get("/events", h.handleGetEvents)
	})
}

func (h *Handler) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, caller, err := recoverSigned[CreateSaleRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	id, err := h.registry.CreateSale(caller, req.TokenRef, req.Start, req.End)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &CreateSaleResponse{SaleID: id})
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, caller, err := recoverSigned[SetActiveRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	id, ok := h.saleIDMatchingURL(w, r, req.SaleID)
	if !ok {
		return
	}

	if err := h.registry.SetSaleActive(caller, id, req.Active); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &ActiveResponse{SaleID: id, Active: req.Active})
}

func (h *Handler) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, caller, err := recoverSigned[TransferOwnershipRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	id, ok := h.saleIDMatchingURL(w, r, req.SaleID)
	if !ok {
		return
	}

	newOwner, err := identity.NewPrincipalFromString(req.NewOwner)
	if err != nil {
		http.Error(w, "invalid new owner principal", http.StatusBadRequest)
		return
	}

	if err := h.registry.TransferSaleOwnership(caller, id, newOwner); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleContribute(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, caller, err := recoverSigned[ContributeRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	id, ok := h.saleIDMatchingURL(w, r, req.SaleID)
	if !ok {
		return
	}

	if err := h.registry.ContributeEncrypted(caller, id, req.Payload); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, caller, err := recoverSigned[FinalizeRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	id, ok := h.saleIDMatchingURL(w, r, req.SaleID)
	if !ok {
		return
	}

	if err := h.registry.FinalizeSale(caller, id, req.Summary); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, caller, err := recoverSigned[ClaimRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	id, ok := h.saleIDMatchingURL(w, r, req.SaleID)
	if !ok {
		return
	}

	if err := h.registry.ClaimAllocationEncrypted(caller, id, req.Allocation); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Sales())
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleIDFromURL(w, r)
	if !ok {
		return
	}

	sale, err := h.registry.Sale(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &sale)
}

func (h *Handler) handleGetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleIDFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, &ActiveResponse{SaleID: id, Active: h.registry.IsActive(id)})
}

func (h *Handler) handleGetAggregates(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleIDFromURL(w, r)
	if !ok {
		return
	}

	aggregates, err := h.registry.Aggregates(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &aggregates)
}

func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleIDFromURL(w, r)
	if !ok {
		return
	}

	participant, err := identity.NewPrincipalFromString(chi.URLParam(r, "participant"))
	if err != nil {
		http.Error(w, "invalid participant principal", http.StatusBadRequest)
		return
	}

	pos, err := h.registry.Position(id, participant)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &pos)
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleIDFromURL(w, r)
	if !ok {
		return
	}

	positions, err := h.registry.Positions(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (h *Handler) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	writeJSON(w, http.StatusOK, &EventsResponse{Events: h.registry.Events(since)})
}

// saleIDFromURL parses the {id} URL parameter, writing a 400 on failure.
func (h *Handler) saleIDFromURL(w http.ResponseWriter, r *http.Request) (ledger.SaleID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid sale id: %v", err), http.StatusBadRequest)
		return 0, false
	}
	return ledger.SaleID(id), true
}

// saleIDMatchingURL parses the {id} URL parameter and rejects requests whose
// signed body names a different sale, preventing replay across sales.
func (h *Handler) saleIDMatchingURL(w http.ResponseWriter, r *http.Request, bodyID ledger.SaleID) (ledger.SaleID, bool) {
	id, ok := h.saleIDFromURL(w, r)
	if !ok {
		return 0, false
	}
	if id != bodyID {
		http.Error(w, fmt.Sprintf("sale id mismatch: URL says %d, body says %d", id, bodyID), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// recoverSigned decodes a signed envelope and returns the verified request
// with the calling principal.
func recoverSigned[T any](r *http.Request) (*T, identity.Principal, error) {
	signedReq, err := DecodeMessage[identity.Signed[T]](r.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing request: %w", err)
	}
	req, signer, err := signedReq.Recover()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid signature: %w", err)
	}
	return req, signer, nil
}

// writeError reports a rejected transition with its specific kind.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind, status := errorKind(err)
	if status == http.StatusInternalServerError {
		h.log.Error("transition failed", "err", err)
	}
	writeJSON(w, status, &ErrorResponse{Kind: kind, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorKind maps a ledger sentinel to its wire kind and HTTP status.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, ledger.ErrInvalidWindow):
		return "InvalidWindow", http.StatusBadRequest
	case errors.Is(err, ledger.ErrZeroIdentity):
		return "ZeroIdentity", http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotAuthorized):
		return "NotAuthorized", http.StatusForbidden
	case errors.Is(err, ledger.ErrSaleNotActive):
		return "SaleNotActive", http.StatusConflict
	case errors.Is(err, ledger.ErrAlreadyFinalized):
		return "AlreadyFinalized", http.StatusConflict
	case errors.Is(err, ledger.ErrNotEnded):
		return "NotEnded", http.StatusConflict
	case errors.Is(err, ledger.ErrNotFinalized):
		return "NotFinalized", http.StatusConflict
	case errors.Is(err, ledger.ErrNoContribution):
		return "NoContribution", http.StatusConflict
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		return "AlreadyClaimed", http.StatusConflict
	case errors.Is(err, ledger.ErrSaleNotFound):
		return "SaleNotFound", http.StatusNotFound
	}
	return "Internal", http.StatusInternalServerError
}

// ErrorForKind maps a wire kind back to its ledger sentinel. Used by the Go
// client to surface typed errors.
func ErrorForKind(kind string) error {
	switch kind {
	case "InvalidWindow":
		return ledger.ErrInvalidWindow
	case "ZeroIdentity":
		return ledger.ErrZeroIdentity
	case "NotAuthorized":
		return ledger.ErrNotAuthorized
	case "SaleNotActive":
		return ledger.ErrSaleNotActive
	case "AlreadyFinalized":
		return ledger.ErrAlreadyFinalized
	case "NotEnded":
		return ledger.ErrNotEnded
	case "NotFinalized":
		return ledger.ErrNotFinalized
	case "NoContribution":
		return ledger.ErrNoContribution
	case "AlreadyClaimed":
		return ledger.ErrAlreadyClaimed
	case "SaleNotFound":
		return ledger.ErrSaleNotFound
	}
	return nil
}
