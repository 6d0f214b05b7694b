package queue

import "amio/ring"

// InputClipLength is the number of float32 samples in one InputChunk: 64
// interleaved stereo frames (INPUT_CLIP_LENGTH in the original).
const InputClipLength = 128

// InputChunk is a fixed-size capture record written by the realtime thread
// and read one at a time by the control thread.
type InputChunk struct {
	PlayspecID          int
	StartingFrame       int
	WasTransportRolling bool
	Samples             [InputClipLength]float32
}

// Plane bundles the four rings one Interface owns: the two task queues, the
// log text ring, and the captured-input ring. Grounded on the original's
// per-Interface python_thread_queue / io_thread_queue / log_queue /
// input_chunk_queue.
type Plane struct {
	ControlToRealtime *ring.Ring[ControlTask]
	RealtimeToControl *ring.Ring[RealtimeTask]
	Log               *ring.Ring[byte]
	InputChunks       *ring.Ring[InputChunk]
}

// NewPlane allocates a message plane with the given ring capacities, each
// of which must be a power of two.
func NewPlane(threadQueueSize, logQueueSize, inputClipQueueSize int) *Plane {
	return &Plane{
		ControlToRealtime: ring.New[ControlTask](threadQueueSize),
		RealtimeToControl: ring.New[RealtimeTask](threadQueueSize),
		Log:               ring.New[byte](logQueueSize),
		InputChunks:       ring.New[InputChunk](inputClipQueueSize),
	}
}

// WriteLog appends s's UTF-8 bytes to the log ring. Never blocks. Returns
// false (and drops the text) if the ring doesn't have room for all of s —
// a best-effort log write, matching the original's "overflow is silently
// dropped" contract (§4.5). Converting s to []byte allocates, so this is
// safe to call from the control thread but not from the realtime thread;
// the realtime thread calls WriteLogBytes with a package-level []byte
// constant instead.
func (p *Plane) WriteLog(s string) bool {
	return p.WriteLogBytes([]byte(s))
}

// WriteLogBytes appends b verbatim to the log ring, exactly like
// write_log in the original communication.c. Takes []byte rather than
// string so a realtime caller can pass a package-level constant without
// allocating. If the ring lacks room for all of b, nothing is written and
// it returns false.
func (p *Plane) WriteLogBytes(b []byte) bool {
	if p.Log.Cap()-p.Log.Len() < len(b) {
		return false
	}
	return p.Log.Write(b) == len(b)
}

// ReadLogs drains up to len(out)-1 bytes of queued log text into out and
// NUL-terminates it, mirroring io_get_logs. Returns the number of text
// bytes written (excluding the terminator).
func (p *Plane) ReadLogs(out []byte) int {
	if len(out) == 0 {
		return 0
	}
	n := p.Log.Read(out[:len(out)-1])
	out[n] = 0
	return n
}

// PostControlTask enqueues a task for the realtime thread to drain. Returns
// false if the queue is full; the caller decides whether to retry.
func (p *Plane) PostControlTask(t ControlTask) bool {
	return p.ControlToRealtime.TryWriteOne(t)
}

// realtimeQueueFullMsg is logged, without allocation, whenever
// PostRealtimeTask drops a task for lack of room.
var realtimeQueueFullMsg = []byte("realtime->control queue full, task dropped\n")

// PostRealtimeTask enqueues a task for the control thread to drain,
// non-blocking. Called only from the realtime thread; a full queue means
// the task is silently dropped, with a best-effort log write to match
// (best-effort observability, §7).
func (p *Plane) PostRealtimeTask(t RealtimeTask) bool {
	if p.RealtimeToControl.TryWriteOne(t) {
		return true
	}
	p.WriteLogBytes(realtimeQueueFullMsg)
	return false
}

// DrainOneControlTask pops and returns at most one queued control->realtime
// task. The realtime callback calls this at most once per invocation
// (§4.5): bounded worst-case work per callback.
func (p *Plane) DrainOneControlTask() (ControlTask, bool) {
	return p.ControlToRealtime.ReadOne()
}

// DrainRealtimeTasks drains every currently queued realtime->control task
// and invokes handle for each, in FIFO order. The control thread calls this
// on its own schedule (not bounded to one per call).
func (p *Plane) DrainRealtimeTasks(handle func(RealtimeTask)) {
	for {
		t, ok := p.RealtimeToControl.ReadOne()
		if !ok {
			return
		}
		handle(t)
	}
}

// WriteInputChunk appends one captured chunk, non-blocking. Called from the
// realtime thread; returns false (drop) if the ring is full.
func (p *Plane) WriteInputChunk(c InputChunk) bool {
	return p.InputChunks.TryWriteOne(c)
}

// ReadInputChunk pops one captured chunk, mirroring io_get_input_chunk.
func (p *Plane) ReadInputChunk() (InputChunk, bool) {
	return p.InputChunks.ReadOne()
}
