// Package ids generates the identifiers used as primary keys for durable
// records (users, projects, memberships, tokens, verification codes).
package ids

import "github.com/oklog/ulid/v2"

// New returns a lexicographically sortable unique identifier. ULID ordering
// keeps index locality for the newest-first scans the listing queries run.
func New() string {
	return ulid.Make().String()
}
