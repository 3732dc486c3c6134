/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger and statistics types from the external API contract.
  Money leaves the API as JSON numbers; it stays decimal internally.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Movements:
    MovementDTO, LineDTO (requests use ledger.MovementInput directly)

  Catalog:
    ProductDTO, StoreDTO, NeighborhoodDTO and their Save*Request bodies

  Stock:
    OwnedStockDTO, InventoryDTO, StockSummaryDTO

  Statistics:
    PeriodDTO, StatisticsRowDTO, StatisticsResponse, OverviewDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Catalog requests carry validator tags checked in the handlers.
  Movement input is validated by ledger.Validator.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/validate.go: MovementInput
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/ledger"
	"github.com/warp/stock-engine/stats"
)

// =============================================================================
// MOVEMENTS
// =============================================================================

type LineDTO struct {
	Product      string   `json:"product"`
	Quantity     int      `json:"quantity"`
	TotalCost    *float64 `json:"totalCost,omitempty"`
	TotalRevenue *float64 `json:"totalRevenue,omitempty"`
}

type MovementDTO struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Kind         string    `json:"kind"`
	Store        string    `json:"store,omitempty"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	Lines        []LineDTO `json:"lines"`
	Discount     float64   `json:"discount"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    string    `json:"createdAt,omitempty"`
}

func toMovementDTO(m ledger.Movement) MovementDTO {
	dto := MovementDTO{
		ID:           string(m.ID),
		Date:         m.Date.String(),
		Kind:         string(m.Kind),
		Store:        string(m.StoreID()),
		Neighborhood: string(m.NeighborhoodID()),
		Lines:        make([]LineDTO, len(m.Lines)),
		Discount:     m.Discount.InexactFloat64(),
		Notes:        m.Notes,
	}
	if !m.CreatedAt.IsZero() {
		dto.CreatedAt = m.CreatedAt.String()
	}
	for i, li := range m.Lines {
		dto.Lines[i] = LineDTO{
			Product:      string(li.ProductID),
			Quantity:     li.Quantity,
			TotalCost:    floatPtr(li.TotalCost),
			TotalRevenue: floatPtr(li.TotalRevenue),
		}
	}
	return dto
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// =============================================================================
// CATALOG
// =============================================================================

type ProductDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ListPrice   float64 `json:"listPrice"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

type SaveProductRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" validate:"required"`
	ListPrice   decimal.Decimal `json:"listPrice"`
	Description string          `json:"description"`
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:          string(p.ID),
		Name:        p.Name,
		ListPrice:   p.ListPrice.InexactFloat64(),
		Description: p.Description,
		CreatedAt:   dateOrEmpty(p.CreatedAt),
	}
}

type NeighborhoodDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type SaveNeighborhoodRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Notes string `json:"notes"`
}

func toNeighborhoodDTO(n ledger.Neighborhood) NeighborhoodDTO {
	return NeighborhoodDTO{
		ID:        string(n.ID),
		Name:      n.Name,
		Notes:     n.Notes,
		CreatedAt: dateOrEmpty(n.CreatedAt),
	}
}

type StoreDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Street        string `json:"street,omitempty"`
	Number        string `json:"number,omitempty"`
	Neighborhood  string `json:"neighborhood"`
	Manager       string `json:"manager,omitempty"`
	Phone         string `json:"phone,omitempty"`
	ContractStart string `json:"contractStart,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

type SaveStoreRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name" validate:"required"`
	Street        string `json:"street"`
	Number        string `json:"number"`
	Neighborhood  string `json:"neighborhood" validate:"required"`
	Manager       string `json:"manager"`
	Phone         string `json:"phone"`
	ContractStart string `json:"contractStart" validate:"omitempty,datetime=2006-01-02"`
	Notes         string `json:"notes"`
}

func toStoreDTO(s ledger.Store) StoreDTO {
	return StoreDTO{
		ID:            string(s.ID),
		Name:          s.Name,
		Street:        s.Street,
		Number:        s.Number,
		Neighborhood:  string(s.NeighborhoodID),
		Manager:       s.Manager,
		Phone:         s.Phone,
		ContractStart: dateOrEmpty(s.ContractStart),
		Notes:         s.Notes,
		CreatedAt:     dateOrEmpty(s.CreatedAt),
	}
}

func dateOrEmpty(tp ledger.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

// =============================================================================
// STOCK
// =============================================================================

type OwnedStockDTO struct {
	Product  string `json:"product"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity"`
}

type InventoryDTO struct {
	Product     string `json:"product"`
	ProductName string `json:"productName,omitempty"`
	Store       string `json:"store"`
	StoreName   string `json:"storeName,omitempty"`
	Quantity    int    `json:"quantity"`
}

// StockSummaryDTO is one product's owned stock next to what sits at stores.
type StockSummaryDTO struct {
	Product  string `json:"product"`
	Name     string `json:"name,omitempty"`
	Owned    int    `json:"owned"`
	AtStores int    `json:"atStores"`
	Total    int    `json:"total"`
}

// =============================================================================
// STATISTICS
// =============================================================================

type PeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Unit  string `json:"unit"`
}

func toPeriodDTO(p ledger.Period) PeriodDTO {
	return PeriodDTO{Start: p.Start.String(), End: p.End.String(), Unit: string(p.Unit)}
}

type StatisticsRowDTO struct {
	Key               string  `json:"key"`
	GroupingDimension string  `json:"groupingDimension"`
	Name              string  `json:"name,omitempty"`
	Neighborhood      string  `json:"neighborhood,omitempty"`
	PhysicalUnits     float64 `json:"physicalUnits"`
	Revenue           float64 `json:"revenue"`
	Cost              float64 `json:"cost"`
	RealizedProfit    float64 `json:"realizedProfit"`
	GenuineProfit     float64 `json:"genuineProfit"`
	RevaluationProfit float64 `json:"revaluationProfit"`
}

type StatisticsResponse struct {
	Period  PeriodDTO          `json:"period"`
	GroupBy string             `json:"groupBy"`
	Rows    []StatisticsRowDTO `json:"rows"`
}

func toStatisticsResponse(res *stats.StatisticsResult) StatisticsResponse {
	out := StatisticsResponse{
		Period:  toPeriodDTO(res.Period),
		GroupBy: string(res.GroupBy),
		Rows:    make([]StatisticsRowDTO, len(res.Rows)),
	}
	for i, r := range res.Rows {
		out.Rows[i] = StatisticsRowDTO{
			Key:               r.Key,
			GroupingDimension: string(r.Dimension),
			Name:              r.Label.Name,
			Neighborhood:      r.Label.Neighborhood,
			PhysicalUnits:     r.PhysicalUnits.InexactFloat64(),
			Revenue:           r.Revenue.InexactFloat64(),
			Cost:              r.Cost.InexactFloat64(),
			RealizedProfit:    r.RealizedProfit.InexactFloat64(),
			GenuineProfit:     r.GenuineProfit.InexactFloat64(),
			RevaluationProfit: r.RevaluationProfit.InexactFloat64(),
		}
	}
	return out
}

// OverviewDTO keeps the dashboard's field name for genuine profit.
type OverviewDTO struct {
	Period            PeriodDTO `json:"period"`
	PhysicalUnits     float64   `json:"physicalUnits"`
	Revenue           float64   `json:"revenue"`
	Cost              float64   `json:"cost"`
	RealizedProfit    float64   `json:"realizedProfit"`
	GainGenuine       float64   `json:"gainGenuine"`
	RevaluationProfit float64   `json:"revaluationProfit"`
}

func toOverviewDTO(res *stats.OverviewResult) OverviewDTO {
	return OverviewDTO{
		Period:            toPeriodDTO(res.Period),
		PhysicalUnits:     res.PhysicalUnits.InexactFloat64(),
		Revenue:           res.Revenue.InexactFloat64(),
		Cost:              res.Cost.InexactFloat64(),
		RealizedProfit:    res.RealizedProfit.InexactFloat64(),
		GainGenuine:       res.GenuineProfit.InexactFloat64(),
		RevaluationProfit: res.RevaluationProfit.InexactFloat64(),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
