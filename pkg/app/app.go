// Package app defines the runtime contract shared by the cmd/* binaries.
//
// cmd/devnet starts its component through Runner so that main only deals
// with flags and exit codes.
package app

// Runner represents a runnable application component.
type Runner interface {
	Run() error
}
