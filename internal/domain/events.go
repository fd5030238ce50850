package domain

import "time"

// SessionInvalidated is published by the HTTP client whenever the backend
// answers 401, whatever call triggered it.
type SessionInvalidated struct {
	Op     string
	Path   string
	Status int
	At     time.Time
}
