// Package models defines the core domain models for the Company entity.
// It includes definitions for Company, CompanySummary and CompanyUpdate,
// plus the seed records the registry starts from.
package models

import "strconv"

// BasePath is the collection path under which companies are exposed.
const BasePath = "/rest/v1/companies"

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the unique identifier assigned by the registry.
	ID int `json:"id"`
	// Name is the company’s name.
	Name string `json:"name"`
	// Industry is the sector the company operates in.
	Industry string `json:"industry"`
	// Address is the postal address, empty when unknown.
	Address string `json:"address"`
}

// CompanySummary is the projection returned when listing companies.
type CompanySummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Summary returns the {id, name} projection of the company.
func (c Company) Summary() CompanySummary {
	return CompanySummary{ID: c.ID, Name: c.Name}
}

// ResourcePath returns the reference path of the company with the given id.
func ResourcePath(id int) string {
	return BasePath + "/" + strconv.Itoa(id)
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates: nil means absent.
type CompanyUpdate struct {
	// Name is the new name for the company.
	Name *string
	// Industry is the new industry.
	Industry *string
	// Address is the new address.
	Address *string
}

// Effective drops fields that are absent or empty. Empty strings never
// overwrite a stored value.
func (u CompanyUpdate) Effective() CompanyUpdate {
	return CompanyUpdate{
		Name:     nonEmpty(u.Name),
		Industry: nonEmpty(u.Industry),
		Address:  nonEmpty(u.Address),
	}
}

// IsEmpty reports whether no field carries a value.
func (u CompanyUpdate) IsEmpty() bool {
	return u.Name == nil && u.Industry == nil && u.Address == nil
}

// Apply overwrites the fields of c that are set in u.
func (u CompanyUpdate) Apply(c *Company) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Industry != nil {
		c.Industry = *u.Industry
	}
	if u.Address != nil {
		c.Address = *u.Address
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// SeedNextID is the id assigned to the first company created after a reset.
const SeedNextID = 3

// Seed returns a fresh copy of the records the registry starts from.
func Seed() []Company {
	return []Company{
		{ID: 1, Name: "Acme Corp", Industry: "Technology", Address: "123 Tech Lane"},
		{ID: 2, Name: "Beta Ltd", Industry: "Finance", Address: "456 Finance Road"},
	}
}
