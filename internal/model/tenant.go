package model

import "time"

// Tenant is an organisation that manager accounts belong to.  This struct
// corresponds to a row in the `tenants` table.
type Tenant struct {
    ID        uint64    `json:"id"`        // tenants.id
    Name      string    `json:"name"`      // tenants.name
    Address   string    `json:"address"`   // tenants.address
    CreatedAt time.Time `json:"createdAt"` // tenants.created_at
    UpdatedAt time.Time `json:"updatedAt"` // tenants.updated_at
}

// Page is one page of a listing.
type Page[T any] struct {
    CurrentPage int `json:"currentPage"`
    PerPage     int `json:"perPage"`
    Total       int `json:"total"`
    Data        []T `json:"data"`
}
