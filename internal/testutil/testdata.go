// Package testutil provides shared fixtures for tests across packages.
package testutil

import (
	"github.com/apidoor/restq/pkg/store/memory"
)

// NewCatalogStore builds an in-memory product catalog used throughout
// the test suites. The product entity carries a column named "negation"
// so empty-value handling for modifier-less keys can be exercised
// against a column that shadows a modifier keyword.
func NewCatalogStore() *memory.Store {
	return memory.NewStore(
		memory.EntityDef{
			Name:     "product",
			Fields:   []string{"title", "price", "status", "negation"},
			HasOne:   map[string]string{"supplier": "supplier"},
			HasMany:  map[string]string{"reviews": "review"},
			ManyMany: map[string]string{"categories": "category"},
		},
		memory.EntityDef{
			Name:            "category",
			Fields:          []string{"title"},
			BelongsManyMany: map[string]string{"products": "product"},
		},
		memory.EntityDef{
			Name:    "supplier",
			Fields:  []string{"name"},
			HasMany: map[string]string{"products": "product"},
		},
		memory.EntityDef{
			Name:   "review",
			Fields: []string{"rating", "comment"},
			HasOne: map[string]string{"product": "product"},
		},
	)
}

// SeedCatalog loads a deterministic data set: five products, three
// categories, two suppliers. Ids are assigned per entity in seed order,
// so product "Chair Deluxe" is product 1, "Bookshelf" is product 5.
func SeedCatalog(s *memory.Store) {
	s.Seed("supplier", map[string]any{"name": "Acme"})
	s.Seed("supplier", map[string]any{"name": "Globex"})

	s.Seed("category", map[string]any{"title": "Furniture"})
	s.Seed("category", map[string]any{"title": "Outdoor"})
	s.Seed("category", map[string]any{"title": "Office"})

	s.Seed("product", map[string]any{"title": "Chair Deluxe", "price": "120", "status": "active", "supplierid": int64(1)})
	s.Seed("product", map[string]any{"title": "Chairman Desk", "price": "340", "status": "active", "supplierid": int64(2)})
	s.Seed("product", map[string]any{"title": "Garden Table", "price": "80", "status": "active", "supplierid": int64(1)})
	s.Seed("product", map[string]any{"title": "Floor Lamp", "price": "45", "status": "discontinued", "supplierid": int64(2)})
	s.Seed("product", map[string]any{"title": "Bookshelf", "price": "150", "status": "active", "supplierid": int64(1)})

	s.Link("product", 1, "categories", 1, nil)
	s.Link("product", 1, "categories", 3, map[string]any{"sortorder": "1"})
	s.Link("product", 3, "categories", 2, nil)
}
