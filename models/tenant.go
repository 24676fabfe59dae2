package models

import "time"

// Tenant is an isolated organizational scope. Queues, ratings,
// matches and configuration are all keyed by tenant.
type Tenant struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
