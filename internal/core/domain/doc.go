// Package domain defines the core entities of the campusbridge request client.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Authorization: the OAuth2 token state owned by one logical request
//   - CredentialRecord: persisted tokens keyed by (user, app)
//   - RequestDescriptor: one logical "fetch resource" request
//   - PageResult: the classified outcome of a single HTTP round trip
//   - PaginationState: the cursor and counters of a page sequence
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
