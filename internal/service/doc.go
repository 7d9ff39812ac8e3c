// Package service owns the live store topology.
//
// TopologyService is the single writer: every operation takes the service
// lock, mutates the topology, reruns the propagation pipeline and publishes
// the resulting events before releasing it, so readers never observe a
// half-updated graph.
//
// # Events
//
// Operations publish on an EventBus. The SSE hub and the optional AMQP sink
// subscribe to it. Every mutation is followed by a pipeline_completed event
// carrying the pass count and finding totals.
//
// # Boot clock
//
// Power cycles and booting overrides are completed by a virtual-time boot
// scheduler. Advance moves that clock; the server calls it from a ticker.
//
// # Persistence
//
// Named topologies and their revision history are stored through a
// repository.Repository. Files are read through the loader, which migrates
// older save documents before the engine sees them.
package service
