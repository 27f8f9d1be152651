// Package connection keeps a camera link alive.
//
// A Supervisor runs one connected lifetime at a time (dial, arm, watch) and
// starts another after the link drops, waiting an exponentially growing,
// jittered delay between attempts:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Reset to 1s once a lifetime reports that it is connected
//
// # Jitter
//
// Cameras behind one NVR tend to drop together. To spread their reconnects:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// Errors wrapped with Permanent stop the supervisor instead of retrying.
package connection
