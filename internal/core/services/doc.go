// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Their only third-party imports are
// golang.org/x packages for hashing, bounded concurrency and image decoding.
package services
