// Package internal documents the social events server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware and routing
// - domain: event and joined-event business rules
// - storage: MongoDB and in-memory repositories
// - auth, config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
