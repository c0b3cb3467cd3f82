// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and storage adapters
// implement them.
//
// # Required Interfaces
//
//   - ConfigDriver: the storage contract every backend satisfies
//   - ConfigStore: application configuration (backend selection,
//     connection details)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
