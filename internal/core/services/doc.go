// Package services implements the driving port interfaces.
// Services contain the pipeline logic and orchestrate
// calls to driven ports (adapters).
//
// Services never touch os/exec or the filesystem directly; process
// launching, persistence and file watching go through driven ports.
package services
