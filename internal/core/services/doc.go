// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// A logical request flows through the services in this order:
//
//	Proxy -> AuthorizationLoader (once) -> ResourceResolver (once)
//	      -> Pager -> Executor (per page) -> CredentialStore (conditionally)
//
// I/O failures never leave the Executor as errors; they are classified
// into error pages that terminate the page sequence.
package services
