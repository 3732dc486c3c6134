package stats

import (
	"context"
	"errors"

	"github.com/warp/stock-engine/ledger"
)

// =============================================================================
// LABELS - Display names for row keys
// =============================================================================

// Label is the display data attached to a statistics row.
type Label struct {
	Name string `json:"name"`

	// Neighborhood is the neighborhood name of a store row.
	Neighborhood string `json:"neighborhood,omitempty"`
}

// Hydrator resolves row keys to labels. Keys without a label are simply
// absent from the returned map; a missing label never fails a report.
type Hydrator interface {
	Labels(ctx context.Context, dim Dimension, keys []string) (map[string]Label, error)
}

var kindLabels = map[string]string{
	string(ledger.KindLoad):     "Load",
	string(ledger.KindRestock):  "Restock",
	string(ledger.KindSale):     "Sale",
	string(ledger.KindShortage): "Shortage",
}

// KindLabels labels movement kind rows. Hydrators delegate DimKind here.
func KindLabels(keys []string) map[string]Label {
	out := make(map[string]Label, len(keys))
	for _, k := range keys {
		if name, ok := kindLabels[k]; ok {
			out[k] = Label{Name: name}
		}
	}
	return out
}

// =============================================================================
// CATALOG HYDRATOR - Per-key lookups against any CatalogStore
// =============================================================================

type CatalogHydrator struct {
	Catalog ledger.CatalogStore
}

var _ Hydrator = CatalogHydrator{}

func (h CatalogHydrator) Labels(ctx context.Context, dim Dimension, keys []string) (map[string]Label, error) {
	out := make(map[string]Label, len(keys))
	switch dim {
	case DimKind:
		return KindLabels(keys), nil

	case DimProduct:
		for _, k := range keys {
			p, err := h.Catalog.GetProduct(ctx, ledger.ProductID(k))
			if errors.Is(err, ledger.ErrProductNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[k] = Label{Name: p.Name}
		}

	case DimStore:
		for _, k := range keys {
			s, err := h.Catalog.GetStore(ctx, ledger.StoreID(k))
			if errors.Is(err, ledger.ErrStoreNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			label := Label{Name: s.Name}
			if s.NeighborhoodID != "" {
				n, err := h.Catalog.GetNeighborhood(ctx, s.NeighborhoodID)
				if err != nil && !errors.Is(err, ledger.ErrNeighborhoodNotFound) {
					return nil, err
				}
				if n != nil {
					label.Neighborhood = n.Name
				}
			}
			out[k] = label
		}

	case DimNeighborhood:
		for _, k := range keys {
			n, err := h.Catalog.GetNeighborhood(ctx, ledger.NeighborhoodID(k))
			if errors.Is(err, ledger.ErrNeighborhoodNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[k] = Label{Name: n.Name}
		}
	}
	return out, nil
}
