// Package core contains the canonical account-support domain contracts,
// entities, and orchestration logic. Lower-level adapters must depend on this
// package; core must not depend on transport-specific or provider-specific
// adapters.
package core
