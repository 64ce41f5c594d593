// Package wire implements the ground-station frame codec.
package wire

// Frames are exchanged with the ground station over a peer-to-peer byte
// channel (serial port or a byte bridge over a broker). Each frame is
//
//	STX | len | seq | id | payload[len] | ckA | ckB
//
// with a Fletcher-16 checksum over everything after STX. The decoder is a
// byte-at-a-time state machine: a checksum mismatch or truncated frame
// silently resynchronizes on the next STX, so a corrupted frame never
// affects any other state.
