// Package assertlib provides the assertion libraries fixtures can require:
// a node-style "assert" module and a subset of "chai".
//
// Every failed assertion throws an AssertionError object carrying message,
// actual, expected and operator. Adapters recognise that shape and report
// the case as failed rather than errored.
package assertlib
