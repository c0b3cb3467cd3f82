// Package domain holds the pure value types of the configuration store:
// identifiers, categories, and the error taxonomy shared by every
// storage driver.
//
// # Import Rules
//
//   - Can Import: standard library only
//   - Cannot Import: ports, services, or any adapter package
package domain
