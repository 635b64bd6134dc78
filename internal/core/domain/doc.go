// Package domain defines the core business entities for tributary.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Connector: a read-only mirror of a remote ELT connector
//   - DestinationTable: a table a connector writes into the warehouse
//   - AssetSpec: the orchestration-graph description of one table
//   - SyncRun: one trigger-and-poll cycle with its state machine
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
