// Package device provides the transport-neutral Bluetooth Low Energy (BLE)
// abstractions the rest of the system is written against.
//
// It defines:
//   - Advertisement/Device/Connection/Service/Characteristic interfaces
//   - Characteristic property flags and writability checks
//   - Structured connection and not-found error types
//   - UUID normalization (lowercase, dash-free, SIG short forms)
//
// Concrete transports implement these interfaces; see the goble subpackage for
// the go-ble backed implementation and internal/testutils for the in-memory
// fake used by tests.
package device
