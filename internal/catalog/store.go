package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/lumenmart/prodsearch/internal/core"
	"github.com/lumenmart/prodsearch/internal/logger"
)

// snapshot is the on-disk shape of a processed catalog file.
type snapshot struct {
	Products []core.Product `json:"products"`
}

// Store holds the canonical product records for one catalog snapshot.
// It is read-only after Load; the query path never touches it.
type Store struct {
	products []core.Product
	byID     map[string]int
}

// Load reads a catalog snapshot from a JSON file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	return New(snap.Products), nil
}

// New builds a store from an in-memory product slice. Later duplicates of
// the same id replace earlier ones, keeping the first insertion position.
func New(products []core.Product) *Store {
	s := &Store{
		byID: make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			logger.Warn("Skipping catalog record with empty id (title=%q)", p.Title)
			continue
		}
		if i, ok := s.byID[p.ID]; ok {
			s.products[i] = p
			continue
		}
		s.byID[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	logger.Info("Loaded catalog with %d products", len(s.products))
	return s
}

// Get returns the product with the given id.
func (s *Store) Get(id string) (core.Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return core.Product{}, false
	}
	return s.products[i], true
}

// All returns every product in snapshot order.
func (s *Store) All() []core.Product {
	out := make([]core.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Len returns the number of products in the store.
func (s *Store) Len() int {
	return len(s.products)
}

// Categories returns the sorted set of distinct product categories.
func (s *Store) Categories() []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, p := range s.products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories
}
