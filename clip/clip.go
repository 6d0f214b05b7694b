// Package clip owns decoded PCM audio clip buffers and their cross-thread
// reference flags. Grounded on the original amio audio_clip.c/h: a clip is
// created on the control thread, its sample buffer is immutable from then
// on, and it is destroyed only once the control thread and every realtime
// interface slot have dropped their reference (see package gc).
package clip

import "amio/pool"

// Clip holds one decoded PCM audio clip: interleaved signed 16-bit samples,
// plus the reference flags consulted by the garbage collector.
//
// Samples is read by a realtime thread only while the corresponding entry
// in ReferencedByRealtime is true; it must never be mutated after Create
// returns. ReferencedByControl and ReferencedByRealtime are owned by (and
// must only be mutated from) the control thread — the realtime thread never
// writes clip state, it only reads Samples via an already-resolved pointer.
type Clip struct {
	ID        int
	Channels  int // 1 (mono) or 2 (stereo)
	Framerate int
	Samples   []int16 // interleaved; LengthFrames = len(Samples) / Channels

	ReferencedByControl bool
	// ReferencedByRealtime is indexed by interface slot (see pool.Pool.Key),
	// not by interface ID, per SPEC_FULL item 1.
	ReferencedByRealtime []bool
}

// LengthFrames returns the number of frames (not samples) in the clip.
func (c *Clip) LengthFrames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Store is a process-wide registry of clips, backed by a pool.Pool with a
// fixed capacity (MaxAudioClips). Only the control thread calls Store's
// methods, except Find, which the realtime thread calls to resolve the clip
// IDs the mixer renders.
type Store struct {
	pool          *pool.Pool[*Clip]
	maxInterfaces int
}

// NewStore creates a clip store with the given capacity and the number of
// interface slots the reference vectors must be sized for.
func NewStore(capacity, maxInterfaces int) *Store {
	return &Store{
		pool:          pool.New[*Clip](capacity),
		maxInterfaces: maxInterfaces,
	}
}

// Create copies bytes into an owned int16 sample buffer and publishes a new
// clip with ReferencedByControl = true and every realtime flag false.
// Returns -1 if the store is saturated. bytes must hold little-endian
// interleaved signed 16-bit PCM, i.e. len(bytes) must be even.
func (s *Store) Create(bytes []byte, channels, framerate int) int {
	n := len(bytes) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(uint16(bytes[2*i]) | uint16(bytes[2*i+1])<<8)
	}

	c := &Clip{
		Channels:             channels,
		Framerate:            framerate,
		Samples:              samples,
		ReferencedByControl:  true,
		ReferencedByRealtime: make([]bool, s.maxInterfaces),
	}
	id := s.pool.Put(c)
	if id == -1 {
		return -1
	}
	c.ID = id
	return id
}

// Find resolves a clip by ID. Safe to call from the realtime thread: it is
// a bounds-checked array read with no locking and no allocation.
func (s *Store) Find(id int) (*Clip, bool) {
	return s.pool.Find(id)
}

// Key returns the slot index backing id, used by gc to index the per-
// interface reference bit. Returns -1 if id is unknown.
func (s *Store) Key(id int) int {
	return s.pool.Key(id)
}

// Unref clears ReferencedByControl for clipID. Synchronous, control-thread
// only; it does not free the clip's buffer — that happens only via gc once
// both reference vectors are false. A miss (unknown id) is a silent no-op.
func (s *Store) Unref(clipID int) {
	if c, ok := s.pool.Find(clipID); ok {
		c.ReferencedByControl = false
	}
}

// ForEach calls cb with the ID of every live clip, in slot order.
func (s *Store) ForEach(cb func(id int)) {
	s.pool.ForEach(cb)
}

// Destroy removes clipID from the store, dropping the last reference to its
// sample buffer so the garbage collector reclaims it. Called only by gc.
func (s *Store) Destroy(clipID int) {
	s.pool.Remove(clipID)
}
