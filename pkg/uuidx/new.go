package uuidx

import "github.com/google/uuid"

// New generates a new time-ordered (version 7) UUID.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Short returns the first 8 hex characters of the id, suitable for file names
// and console output where the full id is noise.
func Short(id uuid.UUID) string {
	return id.String()[:8]
}
