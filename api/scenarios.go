/*
scenarios.go - Demo ledger loaders for testing and demonstrations

PURPOSE:

	Provides pre-built ledgers that populate the database with realistic
	data for demos and manual testing of the statistics screens. Each
	scenario creates a catalog and records movements through the same
	validator the API uses, so a scenario can never store a ledger the
	API would reject.

AVAILABLE SCENARIOS:

	january-2024:      One load, one restock, one sale. The reference case.
	price-revaluation: A second, dearer load revalues stock already owned.
	neighborhood-mix:  Two neighborhoods, three stores, discounts, shortages.

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save neighborhoods, stores and products
 3. Record movements in date order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "neighborhood-mix"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its seed to 'scenarioSeeds'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: recordMovement
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "january-2024",
		Name:        "January 2024",
		Description: "Load 10 units for 100, restock 4 to a store, sell 2 for 50",
	},
	{
		ID:          "price-revaluation",
		Name:        "Price Revaluation",
		Description: "A dearer second purchase revalues the units already owned",
	},
	{
		ID:          "neighborhood-mix",
		Name:        "Neighborhood Mix",
		Description: "Three stores in two neighborhoods with discounts and shortages",
	},
}

// scenarioSeed is the catalog plus the movements of one demo ledger.
type scenarioSeed struct {
	neighborhoods []ledger.Neighborhood
	stores        []ledger.Store
	products      []ledger.Product
	movements     []ledger.MovementInput
}

var scenarioSeeds = map[string]func() scenarioSeed{
	"january-2024":      januarySeed,
	"price-revaluation": revaluationSeed,
	"neighborhood-mix":  neighborhoodMixSeed,
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func baseCatalog() scenarioSeed {
	return scenarioSeed{
		neighborhoods: []ledger.Neighborhood{{ID: "centro", Name: "Centro"}},
		stores: []ledger.Store{{
			ID: "kiosco-sol", Name: "Kiosco Sol", Street: "San Martin", Number: "120",
			NeighborhoodID: "centro", ContractStart: ledger.NewTimePoint(2023, 12, 1),
		}},
		products: []ledger.Product{{ID: "yerba-1kg", Name: "Yerba 1kg", ListPrice: decimal.NewFromInt(30)}},
	}
}

func januarySeed() scenarioSeed {
	s := baseCatalog()
	s.movements = []ledger.MovementInput{
		{Date: "2024-01-05", Kind: "load", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 10, TotalCost: money("100")}}},
		{Date: "2024-01-10", Kind: "restock", StoreID: "kiosco-sol", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 4}}},
		{Date: "2024-01-15", Kind: "sale", StoreID: "kiosco-sol", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 2, TotalRevenue: money("50")}}},
	}
	return s
}

func revaluationSeed() scenarioSeed {
	s := baseCatalog()
	s.movements = []ledger.MovementInput{
		{Date: "2024-01-03", Kind: "load", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 10, TotalCost: money("100")}}},
		{Date: "2024-01-08", Kind: "restock", StoreID: "kiosco-sol", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 6}}},
		{Date: "2024-02-02", Kind: "load", Notes: "supplier price increase", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 10, TotalCost: money("150")}}},
		{Date: "2024-02-10", Kind: "sale", StoreID: "kiosco-sol", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 3, TotalRevenue: money("60")}}},
	}
	return s
}

func neighborhoodMixSeed() scenarioSeed {
	s := baseCatalog()
	s.neighborhoods = append(s.neighborhoods, ledger.Neighborhood{ID: "norte", Name: "Barrio Norte"})
	s.stores = append(s.stores,
		ledger.Store{ID: "almacen-luz", Name: "Almacen Luz", NeighborhoodID: "norte", Manager: "Rosa"},
		ledger.Store{ID: "despensa-rio", Name: "Despensa Rio", NeighborhoodID: "norte"},
	)
	s.products = append(s.products, ledger.Product{ID: "azucar-1kg", Name: "Azucar 1kg", ListPrice: decimal.NewFromInt(12)})

	s.movements = []ledger.MovementInput{
		{Date: "2024-03-01", Kind: "load", Discount: money("20"), Lines: []ledger.LineInput{
			{ProductID: "yerba-1kg", Quantity: 20, TotalCost: money("220")},
			{ProductID: "azucar-1kg", Quantity: 30, TotalCost: money("150")},
		}},
		{Date: "2024-03-02", Kind: "restock", StoreID: "kiosco-sol", Lines: []ledger.LineInput{
			{ProductID: "yerba-1kg", Quantity: 6},
			{ProductID: "azucar-1kg", Quantity: 10},
		}},
		{Date: "2024-03-02", Kind: "restock", StoreID: "almacen-luz", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 8}}},
		{Date: "2024-03-03", Kind: "restock", StoreID: "despensa-rio", Lines: []ledger.LineInput{{ProductID: "azucar-1kg", Quantity: 12}}},
		{Date: "2024-03-09", Kind: "sale", StoreID: "kiosco-sol", Discount: money("9"), Lines: []ledger.LineInput{
			{ProductID: "yerba-1kg", Quantity: 3, TotalRevenue: money("60")},
			{ProductID: "azucar-1kg", Quantity: 5, TotalRevenue: money("30")},
		}},
		{Date: "2024-03-12", Kind: "sale", StoreID: "almacen-luz", Lines: []ledger.LineInput{{ProductID: "yerba-1kg", Quantity: 5, TotalRevenue: money("110")}}},
		{Date: "2024-03-14", Kind: "shortage", StoreID: "despensa-rio", Notes: "broken bags", Lines: []ledger.LineInput{{ProductID: "azucar-1kg", Quantity: 2}}},
		{Date: "2024-03-20", Kind: "sale", StoreID: "despensa-rio", Lines: []ledger.LineInput{{ProductID: "azucar-1kg", Quantity: 8, TotalRevenue: money("72")}}},
		{Date: "2024-03-28", Kind: "shortage", Notes: "warehouse count", Lines: []ledger.LineInput{{ProductID: "azucar-1kg", Quantity: 1}}},
	}
	return s
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": current})
}

// LoadScenario resets the database and loads the requested demo ledger.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	seed, ok := scenarioSeeds[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q does not exist", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.loadSeed(r.Context(), seed()); err != nil {
		h.Logger.Error().Err(err).Str("scenario", req.ScenarioID).Msg("scenario load failed")
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.Logger.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario_id": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadSeed(ctx context.Context, seed scenarioSeed) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	for _, n := range seed.neighborhoods {
		if err := h.Store.SaveNeighborhood(ctx, n); err != nil {
			return fmt.Errorf("neighborhood %s: %w", n.ID, err)
		}
	}
	for _, s := range seed.stores {
		if err := h.Store.SaveStore(ctx, s); err != nil {
			return fmt.Errorf("store %s: %w", s.ID, err)
		}
	}
	for _, p := range seed.products {
		if err := h.Store.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}
	}
	for i, in := range seed.movements {
		if _, err := h.recordMovement(ctx, in); err != nil {
			return fmt.Errorf("movement %d (%s %s): %w", i, in.Kind, in.Date, err)
		}
	}
	return nil
}
