// Package playspec implements the immutable-once-published program
// description the mixer renders, and the single-writer builder protocol
// used to author one. Grounded on the original amio playspec.c/h.
package playspec

// Entry places one clip fragment into the playspec's timeline, optionally
// repeating it periodically.
type Entry struct {
	ClipID int

	// ClipFrameA/ClipFrameB bound the clip region to play: ClipFrameA <
	// ClipFrameB <= clip.LengthFrames().
	ClipFrameA int
	ClipFrameB int

	// PlayAtFrame is the position, in the playspec's own timeline, at which
	// the region starts. When RepeatInterval > 0, this is normalized into
	// [0, RepeatInterval) by the mixer and the entry repeats at that offset
	// every RepeatInterval frames.
	PlayAtFrame int

	// RepeatInterval == 0 means a one-shot entry.
	RepeatInterval int

	GainL float64
	GainR float64
}

// Playspec is an ordered, immutable-once-published list of entries plus
// swap metadata.
type Playspec struct {
	ID      int
	Entries []Entry

	// InsertAt is a frame position in the *previous* playspec's timeline at
	// which the realtime thread should swap this playspec in.
	InsertAt int
	// StartFrom is the frame position in *this* playspec's timeline at
	// which playback resumes immediately after the swap.
	StartFrom int

	// ReferencedByRealtime is true from the moment the realtime thread swaps
	// this playspec in as an interface's current playspec until it is
	// replaced by a later swap. Owned by the realtime thread.
	ReferencedByRealtime bool
}

// Empty returns a fresh zero-entry playspec, used to seed a newly created
// interface so the realtime callback always has a non-nil current playspec.
func Empty(id int) *Playspec {
	return &Playspec{ID: id}
}

// Builder authors one playspec at a time. Only one build may be in
// progress; Begin fails while another is pending Publish. This replaces the
// original's package-level playspec_being_built global with an explicit,
// engine-owned cursor (Design Notes §9).
type Builder struct {
	building *Playspec
	nextID   int
}

// NewBuilder creates a playspec builder. IDs it issues start at 1.
func NewBuilder() *Builder {
	return &Builder{nextID: 1}
}

// Begin starts authoring a new playspec with the given entry count and swap
// metadata. It fails (returns false) if a build is already in progress.
// Every entry starts with GainL = GainR = 1.0, matching the original's
// per-entry defaults.
func (b *Builder) Begin(size, insertAt, startFrom int) bool {
	if b.building != nil {
		return false
	}
	entries := make([]Entry, size)
	for i := range entries {
		entries[i].GainL = 1.0
		entries[i].GainR = 1.0
	}
	b.building = &Playspec{
		Entries:   entries,
		InsertAt:  insertAt,
		StartFrom: startFrom,
	}
	return true
}

// SetEntry fills entry n of the playspec currently under construction. Out
// of range indices are silently ignored, matching the original's bounds
// check.
func (b *Builder) SetEntry(n, clipID, clipA, clipB, playAt, repeat int, gainL, gainR float64) {
	if b.building == nil || n < 0 || n >= len(b.building.Entries) {
		return
	}
	b.building.Entries[n] = Entry{
		ClipID:         clipID,
		ClipFrameA:     clipA,
		ClipFrameB:     clipB,
		PlayAtFrame:    playAt,
		RepeatInterval: repeat,
		GainL:          gainL,
		GainR:          gainR,
	}
}

// Publish assigns the built playspec a fresh ID, transfers ownership to the
// caller, and clears the builder so a new Begin may start. Publish on an
// empty builder (no Begin call since the last Publish) returns nil.
func (b *Builder) Publish() *Playspec {
	p := b.building
	if p == nil {
		return nil
	}
	p.ID = b.nextID
	b.nextID++
	b.building = nil
	return p
}

// Building reports whether a build is currently in progress.
func (b *Builder) Building() bool {
	return b.building != nil
}
