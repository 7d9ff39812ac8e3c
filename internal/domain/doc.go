// Package domain defines the core types for the storenet retail network simulator.
//
// This package contains the device/port graph that models a store network:
// modems, routers, switches, access points, PoE injectors, outlets and the
// POS, printer, KDS and mobile endpoints that hang off them.
//
// # Core Types
//
// Device is a placed piece of equipment. Its ports are created once from the
// catalog Definition for its type and never regenerated.
//
// Port is a connector with a PortRole. Cables are represented as a symmetric
// pair of ConnectedTo references between two ports on different devices.
//
// Topology owns every device and port in flat ID indexes and exposes the only
// operations allowed to mutate cabling: Connect, Disconnect, AddDevice and
// RemoveDevice.
//
// # Catalog
//
// Definitions maps each DeviceType to its category, port templates, power
// model and capability flags. Rules elsewhere key off capabilities rather than
// concrete types.
//
// # Derived State
//
// Device.Status, Port.LinkStatus and Device.ConnectionState are recomputed by
// the engine package after every mutation. Finding is the validator's output.
//
// # Design Principles
//
// - No database or external dependencies
// - Structural invariants are enforced at mutation time
// - Rich type system with meaningful constants and enumerations
package domain
