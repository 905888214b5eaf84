// Package storage provides the persisted key-value medium behind the consent
// and session stores: the server-side analogue of browser localStorage.
//
// # Design
//
// [Store] is a minimal string-keyed byte store. [Memory] backs single-process
// deployments and tests; [Redis] shares state across server-rendered
// instances.
//
// # Architecture boundaries
//
// This package owns key layout and backend error classification. It knows
// nothing about preference records or tokens; serialization belongs to the
// callers.
//
// # What this package must NOT do
//
//   - Attach TTLs. Consent and token lifetime policy live above this layer.
//   - Import goGuard or any sibling package.
package storage
