// Package engine derives runtime state from a store topology.
//
// A pipeline run has four stages, always in this order:
//
//   - power: fixed-point pass deciding which devices receive power
//   - link: per-port physical up/down, including injector pass-through
//   - connection: reachability of each device toward the ISP gateway
//   - validation: advisory findings from the validator package
//
// Every stage recomputes its output from the graph, so the pipeline is
// idempotent. Boot delays are driven by a virtual clock in BootScheduler.
package engine
