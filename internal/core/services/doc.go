// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services perform no I/O of their own; every remote call goes through
// a driven port.
package services
