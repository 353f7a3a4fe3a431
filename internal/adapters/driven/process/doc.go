// Package process runs pipeline stages as child processes.
//
// The Runner implements driven.ProcessRunner on top of os/exec. Each stage
// inherits the driver's environment with the invocation's overrides layered
// on top, so settings such as OMP_NUM_THREADS reach the child without being
// written to the driver's own environment.
//
// Cancelling the context sends an interrupt to the child, and after
// GracePeriod the child is killed.
package process
