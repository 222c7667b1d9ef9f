// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Coordinator owns the ingestion state machine; BookService serves
// stored books and exports. Both are pure Go with no CGO.
package services
