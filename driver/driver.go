// Package driver defines the narrow contract the engine core calls into on
// the underlying audio server, and the lifecycle every concrete driver
// implements around it. Grounded on the original amio driver.h: the core
// only ever needs to set position and transport state; everything else
// (port creation, client lifecycle) is driver-private.
package driver

// Contract is the interface ifaceengine.Interface calls from the realtime
// callback when it applies a SET_POSITION or SET_TRANSPORT_ROLLING control
// task, passing the requested state on to the underlying audio server. It
// must never block and never allocate: it runs on the realtime thread.
type Contract interface {
	// SetPosition tells the driver the engine's current frame position.
	SetPosition(position int)
	// SetTransportRolling tells the driver whether the engine considers
	// transport to be rolling (playing) or not.
	SetTransportRolling(rolling bool)
}

// Lifecycle is implemented by a concrete driver (e.g. PortAudio) to manage
// its own process-level resources. It runs entirely on the control thread.
type Lifecycle interface {
	// Init starts the driver's realtime callback loop(s).
	Init() error
	// Destroy tears the driver down, releasing any OS-level resources.
	// Must be safe to call after a failed or partial Init.
	Destroy()
}
