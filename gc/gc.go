// Package gc implements the control-thread clip garbage collector: a
// three-phase prepare/mark/sweep pass that destroys clips no longer
// referenced by the control thread or by any realtime interface slot.
// Grounded directly on the original amio gc.c.
package gc

import (
	"amio/clip"
	"amio/playspec"
)

// InterfaceView is the read-only view of one live interface the mark phase
// needs: its slot key (for indexing Clip.ReferencedByRealtime) and its
// control-side shadow playspec pointers.
type InterfaceView struct {
	Key                      int
	CurrentPlayspec, Pending *playspec.Playspec
}

// InterfaceSource enumerates every live interface on the control thread,
// the control-side counterpart of clip.Store.ForEach.
type InterfaceSource interface {
	ForEachInterfaceForGC(cb func(InterfaceView))
}

// Collect runs one prepare/mark/sweep pass over clips, consulting every
// interface in interfaces for the mark phase. Run after a PLAYSPEC_APPLIED
// notification (§4.8): a clip dropped from a playspec only becomes eligible
// for destruction once this has run.
func Collect(clips *clip.Store, interfaces InterfaceSource) {
	clips.ForEach(func(id int) { prepare(clips, id) })
	interfaces.ForEachInterfaceForGC(func(v InterfaceView) { mark(clips, v) })
	clips.ForEach(func(id int) { sweep(clips, id) })
}

func prepare(clips *clip.Store, clipID int) {
	c, ok := clips.Find(clipID)
	if !ok {
		return
	}
	for i := range c.ReferencedByRealtime {
		c.ReferencedByRealtime[i] = false
	}
}

func markFromPlayspec(clips *clip.Store, spec *playspec.Playspec, key int) {
	if spec == nil {
		return
	}
	for i := range spec.Entries {
		c, ok := clips.Find(spec.Entries[i].ClipID)
		if !ok {
			continue
		}
		if key >= 0 && key < len(c.ReferencedByRealtime) {
			c.ReferencedByRealtime[key] = true
		}
	}
}

func mark(clips *clip.Store, v InterfaceView) {
	markFromPlayspec(clips, v.CurrentPlayspec, v.Key)
	markFromPlayspec(clips, v.Pending, v.Key)
}

func sweep(clips *clip.Store, clipID int) {
	c, ok := clips.Find(clipID)
	if !ok {
		return
	}
	if c.ReferencedByControl {
		return
	}
	for _, referenced := range c.ReferencedByRealtime {
		if referenced {
			return
		}
	}
	clips.Destroy(clipID)
}
