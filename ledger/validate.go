package ledger

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MOVEMENT INPUT - Wire shape accepted on create/update
// =============================================================================

type MovementInput struct {
	Date     string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Kind     string           `json:"kind" validate:"required"`
	StoreID  string           `json:"store,omitempty"`
	Lines    []LineInput      `json:"lines" validate:"required,min=1,dive"`
	Discount *decimal.Decimal `json:"discount,omitempty" validate:"omitempty,min=0"`
	Notes    string           `json:"notes,omitempty"`
}

type LineInput struct {
	ProductID    string           `json:"product" validate:"required"`
	Quantity     int              `json:"quantity" validate:"min=1"`
	TotalCost    *decimal.Decimal `json:"totalCost,omitempty" validate:"omitempty,min=0"`
	TotalRevenue *decimal.Decimal `json:"totalRevenue,omitempty" validate:"omitempty,min=0"`
}

// NewMovementID returns a fresh movement identifier.
func NewMovementID() MovementID { return MovementID(uuid.NewString()) }

// =============================================================================
// VALIDATOR - Write-time checks the replay engine relies on
// =============================================================================

// Validator turns a MovementInput into a Movement, rejecting anything the
// replay engine could not value: unknown kinds, empty lines, quantities
// below one, negative money, missing cost/revenue, missing store, future
// dates, unknown catalog references and moves beyond current stock.
type Validator struct {
	Catalog   CatalogStore
	Movements MovementStore
	Now       func() time.Time

	validate *validator.Validate
}

func NewValidator(catalog CatalogStore, movements MovementStore) *Validator {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Validator{
		Catalog:   catalog,
		Movements: movements,
		Now:       time.Now,
		validate:  v,
	}
}

// Validate checks in and returns the movement to persist. When existing is
// non-nil the input is an update of that movement: the kind cannot change
// and the stock check only covers quantities added on top of it.
func (v *Validator) Validate(ctx context.Context, in MovementInput, existing *Movement) (*Movement, error) {
	if err := v.validate.Struct(in); err != nil {
		return nil, translateValidation(err)
	}

	kind, err := ParseKind(in.Kind)
	if err != nil {
		return nil, inputErr("kind", "invalid movement kind %q", in.Kind)
	}
	if existing != nil && existing.Kind != kind {
		return nil, inputErr("kind", "movement kind cannot be changed")
	}

	date, err := v.resolveDate(in.Date, existing)
	if err != nil {
		return nil, err
	}

	m := &Movement{
		Kind:  kind,
		Date:  date,
		Notes: in.Notes,
	}
	if existing != nil {
		m.ID = existing.ID
		m.Seq = existing.Seq
		m.CreatedAt = existing.CreatedAt
	}
	if in.Discount != nil {
		m.Discount = *in.Discount
	}

	if err := v.resolveStore(ctx, m, in.StoreID); err != nil {
		return nil, err
	}

	for i, li := range in.Lines {
		line, err := v.resolveLine(ctx, kind, i, li)
		if err != nil {
			return nil, err
		}
		m.Lines = append(m.Lines, line)
	}

	if err := v.checkStock(ctx, m, existing); err != nil {
		return nil, err
	}
	return m, nil
}

func (v *Validator) resolveDate(raw string, existing *Movement) (TimePoint, error) {
	today := At(v.Now())
	if raw == "" {
		if existing != nil {
			return existing.Date, nil
		}
		return today, nil
	}
	date, err := ParseTimePoint(raw)
	if err != nil {
		return TimePoint{}, inputErr("date", "invalid date format (use YYYY-MM-DD)")
	}
	if date.After(today) {
		return TimePoint{}, inputErr("date", "movement date cannot be in the future")
	}
	return date, nil
}

func (v *Validator) resolveStore(ctx context.Context, m *Movement, raw string) error {
	storeID := StoreID(strings.TrimSpace(raw))
	if storeID == "" {
		if m.Kind.RequiresStore() {
			return inputErr("store", "store is required for %s", m.Kind)
		}
		return nil
	}
	if m.Kind == KindLoad {
		return inputErr("store", "load movements go to owned stock and cannot reference a store")
	}

	s, err := v.Catalog.GetStore(ctx, storeID)
	if errors.Is(err, ErrStoreNotFound) {
		return inputErr("store", "store %s not found", storeID)
	}
	if err != nil {
		return err
	}
	m.Store = &StoreRef{ID: s.ID, NeighborhoodID: s.NeighborhoodID}
	return nil
}

func (v *Validator) resolveLine(ctx context.Context, kind Kind, i int, in LineInput) (LineItem, error) {
	field := "lines[" + strconv.Itoa(i) + "]"
	pid := ProductID(strings.TrimSpace(in.ProductID))

	if _, err := v.Catalog.GetProduct(ctx, pid); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return LineItem{}, inputErr(field+".product", "product %s not found", pid)
		}
		return LineItem{}, err
	}

	line := LineItem{ProductID: pid, Quantity: in.Quantity}
	switch kind {
	case KindLoad:
		if in.TotalCost == nil {
			return LineItem{}, inputErr(field+".totalCost", "total cost is required for load lines")
		}
		line.TotalCost = in.TotalCost
	case KindSale:
		if in.TotalRevenue == nil {
			return LineItem{}, inputErr(field+".totalRevenue", "total revenue is required for sale lines")
		}
		line.TotalRevenue = in.TotalRevenue
	case KindRestock, KindShortage:
	}
	return line, nil
}

// checkStock verifies the movement does not take more than the current
// position it draws from. Quantities are summed per product first.
func (v *Validator) checkStock(ctx context.Context, m *Movement, existing *Movement) error {
	if m.Kind == KindLoad {
		return nil
	}

	requested := quantitiesByProduct(m.Lines)
	if existing != nil && existing.StoreID() == m.StoreID() {
		for pid, qty := range quantitiesByProduct(existing.Lines) {
			requested[pid] -= qty
		}
	}

	all, err := v.Movements.Movements(ctx)
	if err != nil {
		return err
	}
	pos := ComputePositions(all)

	fromOwned := m.Kind == KindRestock || (m.Kind == KindShortage && m.Store == nil)
	for _, li := range m.Lines {
		delta, ok := requested[li.ProductID]
		if !ok {
			continue
		}
		delete(requested, li.ProductID)
		if delta <= 0 {
			continue
		}
		if fromOwned {
			if avail := pos.OwnedQty(li.ProductID); avail < delta {
				return inputErr("lines", "insufficient owned stock for product %s: available %d, requested %d",
					li.ProductID, avail, delta)
			}
			continue
		}
		if avail := pos.StoreQty(li.ProductID, m.StoreID()); avail < delta {
			return inputErr("lines", "insufficient stock at store %s for product %s: available %d, requested %d",
				m.StoreID(), li.ProductID, avail, delta)
		}
	}
	return nil
}

func quantitiesByProduct(lines []LineItem) map[ProductID]int {
	out := make(map[ProductID]int, len(lines))
	for _, li := range lines {
		out[li.ProductID] += li.Quantity
	}
	return out
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &InputError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "MovementInput.")
	switch fe.Tag() {
	case "required":
		return inputErr(field, "is required")
	case "min":
		return inputErr(field, "must be at least %s", fe.Param())
	case "datetime":
		return inputErr(field, "invalid date format (use YYYY-MM-DD)")
	}
	return inputErr(field, "failed %s validation", fe.Tag())
}
