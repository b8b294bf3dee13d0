// Package jsrt hosts the JavaScript evaluation context of a run.
//
// A Runtime owns one goja VM and the goja_nodejs event loop driving it. It
// provides the pieces every run needs regardless of test framework:
//
//   - console and a minimal process object writing to the captured streams
//   - timers whose uncaught exceptions are routed back to the harness
//   - require() over an in-memory workspace plus registered native modules
//   - tamper-resistant global bindings
//   - interrupts for watchdogs and whole-run deadlines
//   - rendering of thrown values with harness frames removed
//
// Everything that touches the VM must run on the loop goroutine. Interrupt
// and Stop are the only methods safe to call from elsewhere.
package jsrt
