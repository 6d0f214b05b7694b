// Package binding exposes the ID-based host-language surface (§6): every
// operation names interfaces, clips and playspecs by plain int IDs and
// passes only scalars, strings and byte slices, mirroring a ctypes/FFI boundary
// rather than a Go-idiomatic object API, since this is the one package
// meant to be called from outside the module (e.g. cgo, or a thin
// process-local RPC shim). Grounded on the original amio python_bindings.c
// and the Design Notes §9 guidance to encapsulate process-wide state behind
// an explicit owner rather than package-level globals.
package binding

import (
	"fmt"
	"log"

	"amio/clip"
	"amio/driver"
	"amio/engineconfig"
	"amio/gc"
	"amio/ifaceengine"
	"amio/playspec"
	"amio/pool"
	"amio/queue"
)

// ifaceRecord bundles one interface with the concrete driver and host-local
// input-chunk cache backing it. AudioClip_init/del and the playspec builder
// are process-wide, so they live on Engine instead.
type ifaceRecord struct {
	iface *ifaceengine.Interface
	// driver is held as the narrow driver.Lifecycle interface, not the
	// concrete *driver.PortAudio, so tests can substitute a fake that
	// doesn't need real audio hardware.
	driver driver.Lifecycle

	// lastChunk emulates the original's thread-local "current input chunk"
	// slot: the most recent chunk iface_begin_reading_input_chunk popped,
	// consulted by the InputChunk_get_* accessors below.
	lastChunk    queue.InputChunk
	hasLastChunk bool
}

// Engine is the process-wide binding surface. One Engine typically backs
// one host process; it owns every interface and clip the host has created
// through it.
type Engine struct {
	cfg engineconfig.Config

	interfaces *pool.Pool[*ifaceRecord]
	clips      *clip.Store
	builder    *playspec.Builder
}

// NewEngine creates an Engine sized per cfg.
func NewEngine(cfg engineconfig.Config) *Engine {
	return &Engine{
		cfg:        cfg,
		interfaces: pool.New[*ifaceRecord](cfg.MaxInterfaces),
		clips:      clip.NewStore(cfg.MaxAudioClips, cfg.MaxInterfaces),
		builder:    playspec.NewBuilder(),
	}
}

func (e *Engine) record(interfaceID int) (*ifaceRecord, bool) {
	return e.interfaces.Find(interfaceID)
}

// CreateJackInterface spawns a new interface with its own PortAudio driver
// and message plane, returning its interface_id, or -1 on failure (pool
// saturation or a driver Init error, which is logged and torn down).
func (e *Engine) CreateJackInterface(clientName string) int {
	plane := queue.NewPlane(e.cfg.ControlToRealtimeQueueSize, e.cfg.LogQueueSize, e.cfg.InputChunkQueueSize)
	drv := driver.NewPortAudio(nil, e.cfg.SampleRate, e.cfg.FramesPerBuffer, e.cfg.InputDeviceID, e.cfg.OutputDeviceID)
	iface := ifaceengine.New(0, drv, e.clips, plane)
	drv.SetProcessor(iface)

	if err := drv.Init(); err != nil {
		// §7: driver failure at startup logs via write_log. No interface_id
		// is ever issued for this plane, so forward it to the process-wide
		// logger immediately rather than leaving it stranded in a ring
		// nobody will ever call IfaceGetLogs on.
		plane.WriteLog(fmt.Sprintf("%s: driver init failed: %v\n", clientName, err))
		var buf [256]byte
		if n := plane.ReadLogs(buf[:]); n > 0 {
			log.Printf("[amio] %s", buf[:n])
		}
		return -1
	}

	rec := &ifaceRecord{iface: iface, driver: drv}
	id := e.interfaces.Put(rec)
	if id == -1 {
		drv.Destroy()
		log.Printf("[amio] %s: interface pool saturated", clientName)
		return -1
	}
	iface.ID = id
	return id
}

// IfaceClose tears down the driver and frees the interface's queue buffers.
func (e *Engine) IfaceClose(interfaceID int) {
	rec, ok := e.record(interfaceID)
	if !ok {
		return
	}
	rec.driver.Destroy()
	e.interfaces.Remove(interfaceID)
}

// IfaceProcessMessagesOnPythonQueue drains realtime->control notifications
// for one interface, running a clip GC pass if a playspec was applied.
// Returns 1 if a playspec was applied, 0 otherwise.
func (e *Engine) IfaceProcessMessagesOnPythonQueue(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok {
		return 0
	}
	if !rec.iface.DrainControlQueue() {
		return 0
	}
	gc.Collect(e.clips, e)
	return 1
}

// IfaceSetPlayspec publishes the playspec currently under construction and
// hands it to interfaceID as its pending playspec. Returns the new
// playspec's id, or -1 if there is nothing built, the interface is
// unknown, or the interface already has a pending playspec.
func (e *Engine) IfaceSetPlayspec(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok {
		return -1
	}
	p := e.builder.Publish()
	if p == nil {
		return -1
	}
	if !rec.iface.SetPlayspec(p) {
		return -1
	}
	return p.ID
}

// IfaceGetFrameRate returns the last frame rate reported for interfaceID.
func (e *Engine) IfaceGetFrameRate(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok {
		return -1
	}
	return rec.iface.GetFrameRate()
}

// IfaceGetPosition returns the last position reported for interfaceID.
func (e *Engine) IfaceGetPosition(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok {
		return -1
	}
	return rec.iface.GetPosition()
}

// IfaceSetPosition requests a position change, non-blocking. Returns false
// if the interface is unknown or its control queue is full.
func (e *Engine) IfaceSetPosition(interfaceID, position int) bool {
	rec, ok := e.record(interfaceID)
	if !ok {
		return false
	}
	return rec.iface.SetPosition(position)
}

// IfaceGetTransportRolling returns the last transport-rolling state
// reported for interfaceID, as 0/1 (-1 if unknown).
func (e *Engine) IfaceGetTransportRolling(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok {
		return -1
	}
	if rec.iface.GetTransportRolling() {
		return 1
	}
	return 0
}

// IfaceSetTransportRolling requests a transport state change, non-blocking.
func (e *Engine) IfaceSetTransportRolling(interfaceID int, rolling int) bool {
	rec, ok := e.record(interfaceID)
	if !ok {
		return false
	}
	return rec.iface.SetTransportRolling(rolling != 0)
}

// IfaceGetCurrentPlayspecID returns the playspec id the control thread
// believes is currently live on interfaceID's realtime side.
func (e *Engine) IfaceGetCurrentPlayspecID(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok {
		return -1
	}
	return rec.iface.GetCurrentPlayspecID()
}

// IfaceGetLogs drains up to len(outBuf)-1 bytes of queued log text for
// interfaceID into outBuf and NUL-terminates it, returning the number of
// text bytes written.
func (e *Engine) IfaceGetLogs(interfaceID int, outBuf []byte) int {
	rec, ok := e.record(interfaceID)
	if !ok {
		if len(outBuf) > 0 {
			outBuf[0] = 0
		}
		return 0
	}
	return rec.iface.Plane.ReadLogs(outBuf)
}

// IfaceBeginReadingInputChunk pops one captured chunk for interfaceID into
// its input-chunk slot, consulted by the InputChunk_get_* accessors below.
// Returns false (and leaves the slot unchanged) if none is queued.
func (e *Engine) IfaceBeginReadingInputChunk(interfaceID int) bool {
	rec, ok := e.record(interfaceID)
	if !ok {
		return false
	}
	chunk, ok := rec.iface.Plane.ReadInputChunk()
	if !ok {
		return false
	}
	rec.lastChunk = chunk
	rec.hasLastChunk = true
	return true
}

// InputChunkGetPlayspecID returns the playspec id recorded in interfaceID's
// last-read input chunk, or -1 if none has been read.
func (e *Engine) InputChunkGetPlayspecID(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok || !rec.hasLastChunk {
		return -1
	}
	return rec.lastChunk.PlayspecID
}

// InputChunkGetStartingFrame returns the starting frame of the last-read
// input chunk.
func (e *Engine) InputChunkGetStartingFrame(interfaceID int) int {
	rec, ok := e.record(interfaceID)
	if !ok || !rec.hasLastChunk {
		return -1
	}
	return rec.lastChunk.StartingFrame
}

// InputChunkGetWasTransportRolling returns whether transport was rolling
// when the last-read input chunk was captured.
func (e *Engine) InputChunkGetWasTransportRolling(interfaceID int) bool {
	rec, ok := e.record(interfaceID)
	if !ok || !rec.hasLastChunk {
		return false
	}
	return rec.lastChunk.WasTransportRolling
}

// InputChunkGetSample returns interleaved sample i of the last-read input
// chunk. i must be in [0, queue.InputClipLength).
func (e *Engine) InputChunkGetSample(interfaceID, i int) float32 {
	rec, ok := e.record(interfaceID)
	if !ok || !rec.hasLastChunk || i < 0 || i >= queue.InputClipLength {
		return 0
	}
	return rec.lastChunk.Samples[i]
}

// AudioClipInit decodes bytes as little-endian interleaved PCM16 and
// publishes a new clip. Returns the clip id, or -1 if the clip store is
// saturated.
func (e *Engine) AudioClipInit(bytes []byte, channels, framerate int) int {
	return e.clips.Create(bytes, channels, framerate)
}

// AudioClipDel marks clipID control-unreferenced. interfaceID is accepted
// for symmetry with the original call shape but unused: unref is
// synchronous and applies to the clip regardless of which interface
// requested it (§4.3).
func (e *Engine) AudioClipDel(interfaceID, clipID int) {
	e.clips.Unref(clipID)
}

// BeginDefiningPlayspec starts authoring a new playspec. Returns false if a
// build is already in progress.
func (e *Engine) BeginDefiningPlayspec(size, insertAt, startFrom int) bool {
	return e.builder.Begin(size, insertAt, startFrom)
}

// SetEntryInPlayspec fills entry n of the playspec currently under
// construction.
func (e *Engine) SetEntryInPlayspec(n, clipID, clipA, clipB, playAt, repeat int, gainL, gainR float64) {
	e.builder.SetEntry(n, clipID, clipA, clipB, playAt, repeat, gainL, gainR)
}

// ForEachInterfaceForGC implements gc.InterfaceSource.
func (e *Engine) ForEachInterfaceForGC(cb func(gc.InterfaceView)) {
	e.interfaces.ForEach(func(id int) {
		rec, ok := e.interfaces.Find(id)
		if !ok {
			return
		}
		current, pending := rec.iface.CurrentAndPendingForGC()
		cb(gc.InterfaceView{
			Key:             e.interfaces.Key(id),
			CurrentPlayspec: current,
			Pending:         pending,
		})
	})
}
