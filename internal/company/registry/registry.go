// Package registry holds the in-memory company collection and the id
// counter. All operations are serialized by a single mutex, so every
// read-then-write sequence (create, update, delete, reset) is atomic.
package registry

import (
	"fmt"
	"slices"
	"sync"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
)

// Registry owns an ordered collection of companies. Records handed out are
// copies; callers never alias the stored values.
type Registry struct {
	mu        sync.Mutex
	companies []models.Company
	nextID    int
}

// New returns a registry populated with the seed records.
func New() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// List returns the {id, name} projection of every record in insertion order.
func (r *Registry) List() []models.CompanySummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.CompanySummary, 0, len(r.companies))
	for _, c := range r.companies {
		out = append(out, c.Summary())
	}
	return out
}

// Create assigns the next id to c, appends it and returns the stored record.
// Any id already set on c is ignored.
func (r *Registry) Create(c models.Company) models.Company {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = r.nextID
	r.nextID++
	r.companies = append(r.companies, c)
	return c
}

// Get returns the record with the given id.
func (r *Registry) Get(id int) (models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Company{}, fmt.Errorf("%w: company %d", e.ErrNotFound, id)
	}
	return r.companies[i], nil
}

// Update overwrites the non-empty fields of u on the record with the given
// id. A patch without any non-empty field is rejected with ErrInvalidInput
// and leaves the record untouched.
func (r *Registry) Update(id int, u models.CompanyUpdate) (models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Company{}, fmt.Errorf("%w: company %d", e.ErrNotFound, id)
	}

	patch := u.Effective()
	if patch.IsEmpty() {
		return models.Company{}, fmt.Errorf("%w: no field to update", e.ErrInvalidInput)
	}

	patch.Apply(&r.companies[i])
	return r.companies[i], nil
}

// Delete removes the record with the given id, keeping the order of the
// remaining records, and returns the removed record.
func (r *Registry) Delete(id int) (models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Company{}, fmt.Errorf("%w: company %d", e.ErrNotFound, id)
	}

	removed := r.companies[i]
	r.companies = slices.Delete(r.companies, i, i+1)
	return removed, nil
}

// Reset discards every change and restores the seed records and counter.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.companies = models.Seed()
	r.nextID = models.SeedNextID
}

// Snapshot returns a copy of the full collection in insertion order.
func (r *Registry) Snapshot() []models.Company {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.companies)
}

// NextID returns the id the next created record will receive.
func (r *Registry) NextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.nextID
}

func (r *Registry) indexOf(id int) int {
	return slices.IndexFunc(r.companies, func(c models.Company) bool {
		return c.ID == id
	})
}
