/*
handlers.go - HTTP API handlers for the stock ledger

PURPOSE:
  Exposes the movement ledger, the catalog and stock positions via REST.
  Handles HTTP request/response and JSON serialization, and delegates to
  the ledger validator, the store and the statistics service.

ENDPOINTS:
  Movements:
    GET    /api/movements              List movements, newest first
    POST   /api/movements              Record a movement
    GET    /api/movements/{id}         Get one movement
    PUT    /api/movements/{id}         Correct a movement (kind is fixed)
    DELETE /api/movements/{id}         Remove a movement

  Catalog:
    GET/POST   /api/products, GET/DELETE /api/products/{id}
    GET/POST   /api/stores, GET/DELETE /api/stores/{id}
    GET/POST   /api/neighborhoods, GET/DELETE /api/neighborhoods/{id}

  Stock, statistics, audit and scenarios: see stock.go, statistics.go,
  auditor.go, scenarios.go

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Ledger and catalog persistence
  - Validator: Movement input checks
  - Stats: Statistics service (replay, cache, export)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (validator, store, stats)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Create, edit or deletion would leave movements unbacked
  - 500: Internal errors and inconsistent ledgers

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo ledger loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/stock-engine/ledger"
	"github.com/warp/stock-engine/stats"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     ledger.Repository
	Validator *ledger.Validator
	Stats     *stats.Service
	Logger    zerolog.Logger

	requests *validator.Validate
	auditor  *LedgerAuditor

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires a handler around store. svc may be nil, in which case a
// service without cache reading from the same store is used.
func NewHandler(store ledger.Repository, svc *stats.Service) *Handler {
	if svc == nil {
		svc = stats.NewService(store, stats.CatalogHydrator{Catalog: store})
	}
	return &Handler{
		Store:     store,
		Validator: ledger.NewValidator(store, store),
		Stats:     svc,
		Logger:    log.Logger,
		requests:  validator.New(),
	}
}

// =============================================================================
// MOVEMENT HANDLERS
// =============================================================================

// ListMovements returns the ledger, newest first.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Store.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}

	dtos := make([]MovementDTO, len(movements))
	for i, m := range movements {
		dtos[len(movements)-1-i] = toMovementDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetMovement(w http.ResponseWriter, r *http.Request) {
	id := ledger.MovementID(chi.URLParam(r, "id"))

	m, err := h.Store.GetMovement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get movement", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(*m))
}

// CreateMovement validates and records a new movement.
func (h *Handler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var in ledger.MovementInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := h.recordMovement(r.Context(), in)
	if err != nil {
		writeVerifyError(w, "Failed to create movement", err)
		return
	}

	h.Logger.Info().
		Str("movement", string(m.ID)).
		Str("kind", string(m.Kind)).
		Str("date", m.Date.String()).
		Msg("movement recorded")
	writeJSON(w, http.StatusCreated, toMovementDTO(*m))
}

// UpdateMovement corrects an existing movement. The result must keep the
// whole ledger consistent, not only the current positions.
func (h *Handler) UpdateMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.MovementID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetMovement(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to get movement", err)
		return
	}

	var in ledger.MovementInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := h.Validator.Validate(ctx, in, existing)
	if err != nil {
		writeDomainError(w, "Failed to update movement", err)
		return
	}

	if err := h.verifyLedger(ctx, func(all []ledger.Movement) []ledger.Movement {
		out := make([]ledger.Movement, 0, len(all))
		for _, cur := range all {
			if cur.ID == m.ID {
				cur = *m
			}
			out = append(out, cur)
		}
		sortLedger(out)
		return out
	}); err != nil {
		writeVerifyError(w, "Update would break the ledger", err)
		return
	}

	if err := h.Store.UpdateMovement(ctx, *m); err != nil {
		writeDomainError(w, "Failed to update movement", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(*m))
}

// DeleteMovement removes a movement unless later movements depend on it.
func (h *Handler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.MovementID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetMovement(ctx, id); err != nil {
		writeDomainError(w, "Failed to get movement", err)
		return
	}

	if err := h.verifyLedger(ctx, func(all []ledger.Movement) []ledger.Movement {
		out := make([]ledger.Movement, 0, len(all))
		for _, cur := range all {
			if cur.ID != id {
				out = append(out, cur)
			}
		}
		return out
	}); err != nil {
		writeVerifyError(w, "Deletion would break the ledger", err)
		return
	}

	if err := h.Store.DeleteMovement(ctx, id); err != nil {
		writeDomainError(w, "Failed to delete movement", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// recordMovement validates in and persists it under a fresh id. A
// backdated movement must also leave every later movement valuable.
func (h *Handler) recordMovement(ctx context.Context, in ledger.MovementInput) (*ledger.Movement, error) {
	m, err := h.Validator.Validate(ctx, in, nil)
	if err != nil {
		return nil, err
	}
	m.ID = ledger.NewMovementID()
	m.CreatedAt = ledger.At(h.Validator.Now())

	if err := h.verifyLedger(ctx, func(all []ledger.Movement) []ledger.Movement {
		candidate := *m
		candidate.Seq = math.MaxInt64 // the store appends it after same-day movements
		out := append(all, candidate)
		sortLedger(out)
		return out
	}); err != nil {
		return nil, err
	}

	if err := h.Store.CreateMovement(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// errLedgerBroken marks a verification failure so it maps to 409.
var errLedgerBroken = errors.New("ledger would become inconsistent")

// verifyLedger replays the ledger after edit and reports the first
// movement that could no longer be valued.
func (h *Handler) verifyLedger(ctx context.Context, edit func([]ledger.Movement) []ledger.Movement) error {
	all, err := h.Store.Movements(ctx)
	if err != nil {
		return err
	}
	if err := stats.Verify(ctx, edit(all)); err != nil {
		if ledger.IsInconsistent(err) {
			return errors.Join(errLedgerBroken, err)
		}
		return err
	}
	return nil
}

func sortLedger(movements []ledger.Movement) {
	sort.SliceStable(movements, func(i, j int) bool {
		a, b := movements[i], movements[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Seq < b.Seq
	})
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProduct(r.Context(), ledger.ProductID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// SaveProduct creates a product, or replaces it when the id exists.
func (h *Handler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var req SaveProductRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	if req.ListPrice.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid request", errors.New("listPrice must not be negative"))
		return
	}

	p := ledger.Product{
		ID:          ledger.ProductID(idOrNew(req.ID)),
		Name:        strings.TrimSpace(req.Name),
		ListPrice:   req.ListPrice,
		Description: req.Description,
		CreatedAt:   ledger.Today(),
	}
	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteProduct(r.Context(), ledger.ProductID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// NEIGHBORHOOD HANDLERS
// =============================================================================

func (h *Handler) ListNeighborhoods(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListNeighborhoods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list neighborhoods", err)
		return
	}

	dtos := make([]NeighborhoodDTO, len(list))
	for i, n := range list {
		dtos[i] = toNeighborhoodDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetNeighborhood(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.GetNeighborhood(r.Context(), ledger.NeighborhoodID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get neighborhood", err)
		return
	}
	writeJSON(w, http.StatusOK, toNeighborhoodDTO(*n))
}

func (h *Handler) SaveNeighborhood(w http.ResponseWriter, r *http.Request) {
	var req SaveNeighborhoodRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	n := ledger.Neighborhood{
		ID:        ledger.NeighborhoodID(idOrNew(req.ID)),
		Name:      strings.TrimSpace(req.Name),
		Notes:     req.Notes,
		CreatedAt: ledger.Today(),
	}
	if err := h.Store.SaveNeighborhood(r.Context(), n); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save neighborhood", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNeighborhoodDTO(n))
}

func (h *Handler) DeleteNeighborhood(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteNeighborhood(r.Context(), ledger.NeighborhoodID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete neighborhood", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// STORE HANDLERS
// =============================================================================

func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListStores(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stores", err)
		return
	}

	dtos := make([]StoreDTO, len(list))
	for i, s := range list {
		dtos[i] = toStoreDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.GetStore(r.Context(), ledger.StoreID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get store", err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreDTO(*s))
}

// SaveStore creates or replaces a store. Its neighborhood must exist.
func (h *Handler) SaveStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveStoreRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	nid := ledger.NeighborhoodID(strings.TrimSpace(req.Neighborhood))
	if _, err := h.Store.GetNeighborhood(ctx, nid); err != nil {
		if ledger.IsNotFound(err) {
			writeError(w, http.StatusBadRequest, "Unknown neighborhood", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get neighborhood", err)
		return
	}

	s := ledger.Store{
		ID:             ledger.StoreID(idOrNew(req.ID)),
		Name:           strings.TrimSpace(req.Name),
		Street:         req.Street,
		Number:         req.Number,
		NeighborhoodID: nid,
		Manager:        req.Manager,
		Phone:          req.Phone,
		Notes:          req.Notes,
		CreatedAt:      ledger.Today(),
	}
	if req.ContractStart != "" {
		start, err := ledger.ParseTimePoint(req.ContractStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid contractStart (use YYYY-MM-DD)", err)
			return
		}
		s.ContractStart = start
	}

	if err := h.Store.SaveStore(ctx, s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save store", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoreDTO(s))
}

func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteStore(r.Context(), ledger.StoreID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete store", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

// Ping is the liveness probe.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error category.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

// writeVerifyError reports a failed ledger-wide check. Inconsistencies are
// the caller's fault here, unlike during statistics.
func writeVerifyError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, errLedgerBroken) {
		writeError(w, http.StatusConflict, message, err)
		return
	}
	writeDomainError(w, message, err)
}

func statusFor(err error) int {
	switch {
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeRequest decodes and validates a catalog request body. It writes
// the 400 itself and returns false on failure.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.requests.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

func idOrNew(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}
