// Package ifaceengine implements the per-client Interface: the realtime/
// control state split, the playspec swap protocol, and the sole code that
// drives the realtime audio callback. Grounded on the original amio
// interface.c, with the realtime-callback lifecycle (start/stop ordering,
// atomic flags) cross-checked against the teacher's client/audio.go
// AudioEngine.
package ifaceengine

import (
	"amio/clip"
	"amio/driver"
	"amio/mixer"
	"amio/playspec"
	"amio/queue"
)

// clipLookup adapts a *clip.Store to mixer.ClipLookup, keeping the mixer
// package free of any dependency on clip lifetime/reference concerns.
type clipLookup struct{ store *clip.Store }

func (c clipLookup) Lookup(clipID int) ([]int16, int, bool) {
	clp, ok := c.store.Find(clipID)
	if !ok {
		return nil, 0, false
	}
	return clp.Samples, clp.Channels, true
}

// inputChunkFrames is the number of stereo frames packed into one
// InputChunk: InputClipLength interleaved samples / 2 channels.
const inputChunkFrames = queue.InputClipLength / 2

// Interface is one audio-client instance. Its fields are partitioned by
// which thread may touch them (§3 of the spec): realtime-owned fields are
// only ever read or written from inside Process/ProcessInput/drainOneControlTask;
// control-owned fields are only ever read or written from the control-side
// methods (SetPlayspec, GetPosition, DrainControlQueue, ...). The Plane
// field is the only state both sides touch, and it does so exclusively
// through its lock-free rings.
type Interface struct {
	ID int

	// --- realtime-owned ---
	Current *playspec.Playspec
	Pending *playspec.Playspec
	Driver  driver.Contract
	clips   clipLookup
	unref   *clip.Store // optional; used only by the legacy UNREF_AUDIO_CLIP task path

	// --- control-owned ---
	LastReportedFrameRate        int
	LastReportedPosition         int
	LastReportedTransportRolling bool
	ControlCurrentPlayspec       *playspec.Playspec
	ControlPendingPlayspec       *playspec.Playspec

	// --- shared via queues only ---
	Plane *queue.Plane
}

// New creates an interface seeded with a fresh empty playspec (id 0) so the
// realtime callback always has a non-nil current playspec, per §3.
func New(id int, drv driver.Contract, clips *clip.Store, plane *queue.Plane) *Interface {
	empty := playspec.Empty(0)
	empty.ReferencedByRealtime = true
	return &Interface{
		ID:                     id,
		Current:                empty,
		Driver:                 drv,
		clips:                  clipLookup{store: clips},
		unref:                  clips,
		LastReportedFrameRate:  -1,
		LastReportedPosition:   -1,
		ControlCurrentPlayspec: empty,
		Plane:                  plane,
	}
}

// attemptSwap implements apply_pending_playspec_if_needed: promotes the
// pending playspec to current once frameInPlayspec has reached its
// insert_at, updates the playspecs' own ReferencedByRealtime flags, and
// notifies control. Returns the (possibly unchanged) frame position and
// whether a swap occurred.
func (f *Interface) attemptSwap(frameInPlayspec, startFromOffset int) (int, bool) {
	old := f.Current
	next := f.Pending

	if next == nil {
		return frameInPlayspec, false
	}

	if next == old {
		// Open question in the original source: unclear how a pending
		// playspec could ever equal the current one. Preserved as a
		// defensive no-op without inferring intent.
		f.Pending = nil
		return frameInPlayspec, false
	}

	if old != nil && frameInPlayspec < next.InsertAt {
		return frameInPlayspec, false // wait for insert_at
	}

	f.Current = next
	f.Pending = nil
	newFrame := next.StartFrom + startFromOffset

	if old != nil {
		old.ReferencedByRealtime = false
	}
	next.ReferencedByRealtime = true

	f.Plane.PostRealtimeTask(queue.RealtimeTask{Kind: queue.PlayspecApplied, Ptr: next})

	return newFrame, true
}

// Log messages for drainOneControlTask, mirroring interface.c's write_log
// call on each of io_thread_set_playspec/set_pos/set_transport_state.
// Package-level so applying a task never allocates on the realtime thread.
var (
	logSetPlayspecApplied         = []byte("set_playspec applied\n")
	logSetPositionApplied         = []byte("set_position applied\n")
	logSetTransportRollingApplied = []byte("set_transport_rolling applied\n")
)

// drainOneControlTask pops and applies at most one queued control task,
// per §4.5's bounded-work-per-callback rule.
func (f *Interface) drainOneControlTask() {
	task, ok := f.Plane.DrainOneControlTask()
	if !ok {
		return
	}
	switch task.Kind {
	case queue.SetPlayspec:
		f.Pending = task.Ptr
		f.Plane.WriteLogBytes(logSetPlayspecApplied)
	case queue.SetPosition:
		f.Driver.SetPosition(task.Int)
		f.Plane.WriteLogBytes(logSetPositionApplied)
	case queue.SetTransportRolling:
		f.Driver.SetTransportRolling(task.Int != 0)
		f.Plane.WriteLogBytes(logSetTransportRollingApplied)
	case queue.UnrefAudioClip:
		// Legacy path kept for protocol completeness (§4.5 lists it in the
		// task catalog); this implementation's primary unref path is the
		// synchronous clip.Store.Unref call made directly from the
		// binding layer (§4.3), so this branch is not exercised by
		// binding.AudioClipDel, only by bindings that choose to route
		// through the queue instead.
		if f.unref != nil {
			f.unref.Unref(task.Int)
		}
	}
}

// Process runs the realtime callback for nframes samples, mirroring
// process_output_with_buffers. portL/portR must each have length >=
// nframes. Returns the frame position the host should advance its
// transport to (if it doesn't track position independently).
func (f *Interface) Process(nframes int, frameInPlayspec int, transportRolling bool, portL, portR []float32) int {
	f.Plane.PostRealtimeTask(queue.RealtimeTask{Kind: queue.ReportPosition, Int: frameInPlayspec})
	f.Plane.PostRealtimeTask(queue.RealtimeTask{Kind: queue.ReportTransportRolling, Int: boolToInt(transportRolling)})

	mixer.ClearPorts(portL[:nframes], portR[:nframes])

	if !transportRolling {
		startFromOffset := 0
		if f.Pending != nil && frameInPlayspec > f.Pending.InsertAt {
			startFromOffset = frameInPlayspec - f.Pending.InsertAt
		}
		frameInPlayspec, _ = f.attemptSwap(frameInPlayspec, startFromOffset)
		f.drainOneControlTask()
		return frameInPlayspec
	}

	framesCopied := 0
	for framesCopied < nframes {
		framesToCopy := nframes - framesCopied
		startFromOffset := 0

		if f.Pending != nil {
			aheadBy := f.Pending.InsertAt - frameInPlayspec
			if framesToCopy > aheadBy {
				framesToCopy = aheadBy
			}
			if framesToCopy < 0 {
				startFromOffset = -framesToCopy
				framesToCopy = 0
			}
		}

		mixer.Mix(f.Current, f.clips, portL[framesCopied:nframes], portR[framesCopied:nframes], frameInPlayspec, framesToCopy)
		framesCopied += framesToCopy
		frameInPlayspec += framesToCopy

		frameInPlayspec, _ = f.attemptSwap(frameInPlayspec, startFromOffset)
	}

	mixer.ClampPorts(portL[:nframes], portR[:nframes])
	f.drainOneControlTask()

	return frameInPlayspec
}

// ProcessInput packs nframes of captured stereo samples into fixed-size
// InputChunk records and writes them to the input ring, mirroring
// process_input_with_buffers. Called from the realtime thread.
func (f *Interface) ProcessInput(nframes int, portL, portR []float32, startingFrame int, transportRolling bool) {
	bufferI := 0
	for bufferI < nframes {
		var chunk queue.InputChunk
		chunk.PlayspecID = f.Current.ID
		chunk.StartingFrame = startingFrame + bufferI
		chunk.WasTransportRolling = transportRolling

		for clipI := 0; clipI < inputChunkFrames && bufferI < nframes; clipI++ {
			chunk.Samples[2*clipI+0] = portL[bufferI]
			chunk.Samples[2*clipI+1] = portR[bufferI]
			bufferI++
		}
		f.Plane.WriteInputChunk(chunk)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- control-thread methods ---

// SetPlayspec enqueues p as the pending playspec, refusing (returning
// false) if this interface already has a pending playspec, per §5: "a
// set_playspec on an interface with a pending playspec returns -1 without
// mutating state."
func (f *Interface) SetPlayspec(p *playspec.Playspec) bool {
	if f.ControlPendingPlayspec != nil {
		return false
	}
	if !f.Plane.PostControlTask(queue.ControlTask{Kind: queue.SetPlayspec, Ptr: p}) {
		return false
	}
	f.ControlPendingPlayspec = p
	return true
}

// SetPosition requests the driver move to position, non-blocking.
func (f *Interface) SetPosition(position int) bool {
	return f.Plane.PostControlTask(queue.ControlTask{Kind: queue.SetPosition, Int: position})
}

// SetTransportRolling requests the driver change transport state.
func (f *Interface) SetTransportRolling(rolling bool) bool {
	return f.Plane.PostControlTask(queue.ControlTask{Kind: queue.SetTransportRolling, Int: boolToInt(rolling)})
}

// GetFrameRate returns the last frame rate reported by the driver.
func (f *Interface) GetFrameRate() int { return f.LastReportedFrameRate }

// GetPosition returns the last position reported by the realtime thread.
func (f *Interface) GetPosition() int { return f.LastReportedPosition }

// GetTransportRolling returns the last transport-rolling state reported by
// the realtime thread.
func (f *Interface) GetTransportRolling() bool { return f.LastReportedTransportRolling }

// GetCurrentPlayspecID returns the ID of the playspec the control thread
// believes is currently live on the realtime side.
func (f *Interface) GetCurrentPlayspecID() int {
	if f.ControlCurrentPlayspec == nil {
		return -1
	}
	return f.ControlCurrentPlayspec.ID
}

// DrainControlQueue applies every currently queued realtime->control task
// to the control-owned mirrors and shadow playspec pointers. Returns true
// if at least one PLAYSPEC_APPLIED was processed, signaling the caller
// should run a clip GC pass (§4.8).
func (f *Interface) DrainControlQueue() bool {
	applied := false
	f.Plane.DrainRealtimeTasks(func(t queue.RealtimeTask) {
		switch t.Kind {
		case queue.ReportPosition:
			f.LastReportedPosition = t.Int
		case queue.ReportTransportRolling:
			f.LastReportedTransportRolling = t.Int != 0
		case queue.ReportFrameRate:
			f.LastReportedFrameRate = t.Int
		case queue.PlayspecApplied:
			f.ControlCurrentPlayspec = t.Ptr
			f.ControlPendingPlayspec = nil
			applied = true
		case queue.DestroyAudioClip:
			// Legacy direct-free notification; destruction in this design
			// goes through package gc's mark-and-sweep instead (§4.8).
		}
	})
	return applied
}

// ReportFrameRate posts the audio server's sample rate back to control.
// Called once by a concrete driver when it discovers the rate (e.g. at
// PortAudio stream open), not on every callback.
func (f *Interface) ReportFrameRate(rate int) {
	f.Plane.PostRealtimeTask(queue.RealtimeTask{Kind: queue.ReportFrameRate, Int: rate})
}

// CurrentAndPendingForGC returns the control-side shadow pointers the clip
// GC marks clips against. Exposed read-only for package gc.
func (f *Interface) CurrentAndPendingForGC() (current, pending *playspec.Playspec) {
	return f.ControlCurrentPlayspec, f.ControlPendingPlayspec
}
