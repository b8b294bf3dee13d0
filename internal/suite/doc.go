// Package suite holds the test tree and the scheduler that executes it.
//
// A run moves through three phases:
//
//	Registering -> Executing -> Completed
//
// While Registering, adapters append groups, cases and hooks through a
// Builder; group bodies run immediately so nested registrations land in the
// right place, case bodies are only recorded. Seal freezes the tree and the
// Scheduler then walks it depth-first in registration order.
//
// # Single-threaded execution
//
// The scheduler is driven entirely from one event loop. Case bodies never
// run concurrently. An asynchronous case suspends the walk until either its
// completion callback or its timeout timer fires; both arrive on the loop,
// and the first one to settle the case wins. Anything arriving later is
// ignored.
package suite
