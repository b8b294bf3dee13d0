// Package runner assembles one evaluation context per request and executes
// it.
//
// A run evaluates, in order, the bootstrap setup (for adapters that have
// one), the submitted code, and the fixture, all in a single JavaScript
// runtime whose globals already hold the reporting object and the adapter's
// vocabulary. The registered tree is then executed by the suite scheduler
// and every report is written to the run's stdout as protocol tokens.
//
// # Faults
//
// Faults raised while a case body runs are reported against that case. A
// fault anywhere else (top-level code, fixture evaluation, registration,
// an uncaught timer exception with no case waiting) is reported once as a
// fatal ERROR, after which the stream is closed and the loop stopped.
//
// # Deadlines
//
// The whole run is bounded by Request.RunTimeout. When it expires the VM is
// interrupted, the loop stopped, and a fatal ERROR "Execution timed out
// after <N>ms" ends the stream.
package runner
