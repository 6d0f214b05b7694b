// Package queue implements the cross-thread message plane: typed task
// envelopes carried over ring.Ring queues, plus the log and input-chunk
// ring buffers. Grounded on the original amio communication.c/h.
package queue

import "amio/playspec"

// TaskKind enumerates the task envelopes understood by each direction. A
// tagged-variant representation is used instead of function pointers
// (Design Notes §9): friendlier to a strongly-typed target language while
// preserving the original's one-callable-plus-one-argument shape.
type TaskKind int

// Control -> realtime task kinds.
const (
	SetPlayspec TaskKind = iota
	SetPosition
	SetTransportRolling
	UnrefAudioClip
)

// Realtime -> control task kinds.
const (
	PlayspecApplied TaskKind = iota + 100
	DestroyAudioClip // legacy direct-free path; control-side GC is preferred
	ReportFrameRate
	ReportPosition
	ReportTransportRolling
)

// ControlTask is a value-copied envelope posted from the control thread to
// the realtime thread. Ptr carries pointer-valued arguments (ownership
// transfers with the task); Int carries integer arguments. Only one of the
// two is meaningful per Kind.
type ControlTask struct {
	Kind TaskKind
	Ptr  *playspec.Playspec // meaningful for SetPlayspec
	Int  int                // meaningful for SetPosition, SetTransportRolling, UnrefAudioClip (clip id)
}

// RealtimeTask is a value-copied envelope posted from the realtime thread
// back to the control thread.
type RealtimeTask struct {
	Kind TaskKind
	Ptr  *playspec.Playspec // meaningful for PlayspecApplied
	Int  int                // meaningful for ReportFrameRate/Position/TransportRolling, DestroyAudioClip (clip id)
}
