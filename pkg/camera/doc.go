// Package camera is the client for one camera channel over a multiplexed
// transport connection.
//
// A Camera allocates message numbers and issues commands on them. Each
// command opens its own stream, sends one request and waits for the reply:
//
//	cam := camera.New(conn, camera.Options{ChannelID: 0})
//	session, err := cam.ListenOnMotion(ctx)
//	err = cam.SetFloodlightManual(ctx, true, 180)
package camera
