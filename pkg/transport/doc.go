// Package transport provides the camera connection used by camlink.
//
// The transport layer handles:
//   - Header-delimited message framing over TCP
//   - Multiplexing by message number: each Subscription owns one number
//     and receives every message the camera sends on it
//   - Connection loss detection, surfaced to every open Subscription
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR body (pkg/wire)         │
//	├────────────────────────────────┤
//	│   20-byte header framing       │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Subscriptions
//
// A message number can be held by at most one Subscription at a time.
// Closing a Subscription frees its number; a later Subscribe on the same
// number succeeds. When the read loop fails, every Recv returns an error
// wrapping ErrConnectionLost.
package transport
