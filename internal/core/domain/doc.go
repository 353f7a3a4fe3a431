// Package domain defines the core types for hcgarun.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - StageName: One step of the pipeline, a subcommand of the hcga tool
//   - PipelineConfig: Which stages run and with which arguments
//   - Invocation: A fully resolved external process call
//   - Run: The record of one pipeline execution
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
