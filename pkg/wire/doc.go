// Package wire defines the message format of the camera control protocol.
//
// Every message is a fixed 20-byte header followed by an optional body.
// The header is little-endian and carries routing information; the body
// is CBOR (RFC 8949) with integer keys.
//
// # Header Layout
//
//	┌──────────┬────────┬──────────┬─────────┬────────┬─────────┬──────────┬───────┐
//	│ magic    │ msg id │ body len │ channel │ stream │ msg num │ response │ class │
//	│ 4B       │ 4B     │ 4B       │ 1B      │ 1B     │ 2B      │ 2B       │ 2B    │
//	└──────────┴────────┴──────────┴─────────┴────────┴─────────┴──────────┴───────┘
//
// # Message Numbers
//
// The msg id names the command (motion request, floodlight, ...). The msg
// num correlates a request with its replies: the camera answers on the
// message number the client chose, and after arming motion reporting it
// keeps pushing notifications on that same number.
//
// # Response Codes
//
// Replies carry 200 on success. Requests carry 0.
package wire
