package store

import "github.com/google/uuid"

// GenNewID mints a time-ordered UUIDv7, matching the id scheme used across
// the Postgres-backed stores (sortable primary keys, no extra sequence table).
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
