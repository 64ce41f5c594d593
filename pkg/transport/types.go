// Package transport defines the byte-link contract between the vessel
// node and its ground-station transports.
package transport

// Transport moves raw frame bytes between the node and the ground
// station. Implementations must never block the control tick: Enqueue
// hands off to a bounded outbound queue and ReadByte pops from a
// bounded inbound queue.
type Transport interface {
	// Enqueue queues b for transmission, reporting false when the
	// outbound queue cannot take the whole slice.
	Enqueue(b []byte) bool
	// ReadByte pops one inbound byte, reporting false when none is
	// pending.
	ReadByte() (byte, bool)
	// Status reports the transmit-side and receive-side error states.
	Status() (txErr, rxErr bool)
}
