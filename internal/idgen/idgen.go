// Package idgen generates the opaque identifiers used for tasks and stream
// runs.
package idgen

import "github.com/google/uuid"

// New returns a fresh globally-unique identifier.
func New() string {
	return uuid.NewString()
}
