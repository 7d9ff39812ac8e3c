// Package handler implements the HTTP API of the store network planner.
//
// TopologyHandler exposes the live topology held by service.TopologyService:
// reading the topology, findings and device catalog, placing and cabling
// devices, operator overrides, power cycles, wifi configuration, saved
// topologies with revision history, JSON/YAML import and export, the store
// scenario generator and the simulation clock.
//
// Errors are returned as JSON with an {error, details} body. Missing devices,
// ports and saved topologies answer 404; cabling and wifi rejections 422;
// malformed input 400; persistence without a database 503.
//
// Middleware provides panic recovery, CORS and request logging. Live updates
// are streamed separately by the hub package on /events.
package handler
