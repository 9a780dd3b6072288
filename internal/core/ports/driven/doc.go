// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ConfigResolver: Per-app configuration lookup
//   - CredentialStore: Token persistence keyed by (user, app)
//   - ResourceResolver: Maps (api, version, resource, method) to a remote operation
//   - Transport: Executes one HTTP call (live or fixture-backed)
//   - TokenRefresher: Builds refreshing token sources for live apps
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - InstrumentationSink: Receives one event per HTTP call. Without it, calls are not instrumented.
//   - FixtureProvider: Canned responses. Only used by the fixture transport in fake mode.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
