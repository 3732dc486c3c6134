package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/warp/stock-engine/ledger"
)

// =============================================================================
// STOCK ENDPOINTS
// =============================================================================
//
// Positions are never stored; each request replays the whole ledger with
// ledger.ComputePositions. Zero positions are omitted.

// GetOwnedStock lists what the distributor holds, per product.
func (h *Handler) GetOwnedStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pos, err := h.positions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stock", err)
		return
	}
	names, err := h.productNames(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	owned := pos.OwnedList()
	dtos := make([]OwnedStockDTO, len(owned))
	for i, e := range owned {
		dtos[i] = OwnedStockDTO{Product: string(e.ProductID), Name: names[e.ProductID], Quantity: e.Quantity}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInventory lists consigned stock per store and product.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pos, err := h.positions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stock", err)
		return
	}
	names, err := h.productNames(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}
	stores, err := h.Store.ListStores(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stores", err)
		return
	}
	storeNames := make(map[ledger.StoreID]string, len(stores))
	for _, s := range stores {
		storeNames[s.ID] = s.Name
	}

	inv := pos.InventoryList()
	dtos := make([]InventoryDTO, len(inv))
	for i, e := range inv {
		dtos[i] = InventoryDTO{
			Product:     string(e.ProductID),
			ProductName: names[e.ProductID],
			Store:       string(e.StoreID),
			StoreName:   storeNames[e.StoreID],
			Quantity:    e.Quantity,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStockSummary shows, per product, owned stock next to the sum held at
// all stores.
func (h *Handler) GetStockSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pos, err := h.positions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stock", err)
		return
	}
	names, err := h.productNames(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	byProduct := make(map[ledger.ProductID]*StockSummaryDTO)
	entry := func(id ledger.ProductID) *StockSummaryDTO {
		e, ok := byProduct[id]
		if !ok {
			e = &StockSummaryDTO{Product: string(id), Name: names[id]}
			byProduct[id] = e
		}
		return e
	}
	for _, o := range pos.OwnedList() {
		entry(o.ProductID).Owned = o.Quantity
	}
	for _, i := range pos.InventoryList() {
		entry(i.ProductID).AtStores += i.Quantity
	}

	dtos := make([]StockSummaryDTO, 0, len(byProduct))
	for _, e := range byProduct {
		e.Total = e.Owned + e.AtStores
		dtos = append(dtos, *e)
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Product < dtos[j].Product })
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) positions(ctx context.Context) (*ledger.Positions, error) {
	movements, err := h.Store.Movements(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.ComputePositions(movements), nil
}

func (h *Handler) productNames(ctx context.Context) (map[ledger.ProductID]string, error) {
	products, err := h.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[ledger.ProductID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
