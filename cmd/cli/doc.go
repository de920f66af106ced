// Package cli constructs the submodule-bump command-line interface, wiring the
// Cobra command hierarchy, the viper-backed configuration loader, and zap
// logging around the submodule bump command.
package cli
