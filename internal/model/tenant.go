package model

import "time"

// Tenant is the owning organization for all backed-up data. Only the fields
// the backup engine needs are modelled here; tenant CRUD lives elsewhere.
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
