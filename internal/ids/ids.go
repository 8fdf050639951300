// Package ids generates identity record identifiers.
package ids

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID. Identifiers sort by creation time, which
// keeps identity listings in registration order without an extra index.
func New() string {
	return ulid.Make().String()
}
