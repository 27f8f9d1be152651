// Package motion turns a camera's motion notifications into a queryable,
// time-aware status stream.
//
// Listen arms motion reporting on one camera channel and returns a Session.
// A listener goroutine owned by the session classifies each notification as
// Start, Stop or NoChange and pushes it into a bounded queue. The session
// answers instantaneous questions against that queue:
//
//	active, known, err := session.IsMotion()
//	active, known, err = session.IsMotionWithin(30 * time.Second)
//
// and temporal ones that block until a state has held for a minimum time,
// restarting whenever the opposite state is reported:
//
//	err := session.AwaitStop(ctx, 10*time.Second)
//
// A Session is driven by a single goroutine. Close stops the listener and
// releases its subscription.
package motion
