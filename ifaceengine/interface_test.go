package ifaceengine

import (
	"testing"

	"amio/clip"
	"amio/playspec"
	"amio/queue"
)

type fakeDriver struct {
	positions []int
	rolling   []bool
}

func (d *fakeDriver) SetPosition(p int)        { d.positions = append(d.positions, p) }
func (d *fakeDriver) SetTransportRolling(r bool) { d.rolling = append(d.rolling, r) }

func le16(vals ...int16) []byte {
	out := make([]byte, 2*len(vals))
	for i, v := range vals {
		out[2*i] = byte(uint16(v))
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

func newTestInterface() (*Interface, *clip.Store) {
	store := clip.NewStore(8, 2)
	plane := queue.NewPlane(32, 256, 32)
	iface := New(0, &fakeDriver{}, store, plane)
	return iface, store
}

// S4 — swap fires exactly when frame_in_playspec reaches pending.insert_at.
func TestProcessSwapAtInsertAt(t *testing.T) {
	iface, store := newTestInterface()
	clipA := store.Create(le16(1, 1, 1, 1), 1, 48000)
	clipB := store.Create(le16(9, 9, 9, 9, 9, 9), 1, 48000)

	iface.Current = &playspec.Playspec{ID: 1, Entries: []playspec.Entry{
		{ClipID: clipA, ClipFrameA: 0, ClipFrameB: 4, PlayAtFrame: 0, GainL: 1, GainR: 1},
	}}
	pending := &playspec.Playspec{ID: 2, InsertAt: 4, StartFrom: 100, Entries: []playspec.Entry{
		{ClipID: clipB, ClipFrameA: 0, ClipFrameB: 6, PlayAtFrame: 100, GainL: 1, GainR: 1},
	}}
	iface.Pending = pending

	portL := make([]float32, 10)
	portR := make([]float32, 10)
	newFrame := iface.Process(10, 0, true, portL, portR)

	if newFrame != 106 {
		t.Errorf("expected new frame 106, got %d", newFrame)
	}
	if iface.Current != pending {
		t.Error("expected pending playspec to become current")
	}
	if iface.Pending != nil {
		t.Error("expected pending to be cleared after swap")
	}
	if !pending.ReferencedByRealtime {
		t.Error("expected swapped-in playspec to be marked referenced_by_realtime")
	}

	// frames 0..3 should carry clipA's samples, frames 4..9 clipB's.
	for i := 0; i < 4; i++ {
		if portL[i] == 0 {
			t.Errorf("frame %d: expected clipA audio, got silence", i)
		}
	}
	for i := 4; i < 10; i++ {
		if portL[i] == 0 {
			t.Errorf("frame %d: expected clipB audio, got silence", i)
		}
	}
}

// S5 — a callback that wakes up past the scheduled swap point computes a
// start_from_offset instead of dropping samples.
func TestProcessLateSwapOffset(t *testing.T) {
	iface, store := newTestInterface()
	clipB := store.Create(le16(1, 2, 3, 4, 5, 6, 7, 8), 1, 48000)

	iface.Current = playspec.Empty(1)
	pending := &playspec.Playspec{ID: 2, InsertAt: 3, StartFrom: 100, Entries: []playspec.Entry{
		{ClipID: clipB, ClipFrameA: 0, ClipFrameB: 8, PlayAtFrame: 100, GainL: 1, GainR: 1},
	}}
	iface.Pending = pending

	portL := make([]float32, 4)
	portR := make([]float32, 4)
	// Callback wakes up at frame_in_playspec=5, already 2 frames past insert_at=3.
	newFrame := iface.Process(4, 5, true, portL, portR)

	if newFrame != 106 {
		t.Errorf("expected new frame 106 (100 + 2 offset + 4 copied), got %d", newFrame)
	}
	if iface.Current != pending {
		t.Error("expected swap to have occurred")
	}
}

// Non-rolling transport still attempts exactly one swap per callback.
func TestProcessNonRollingAttemptsSwap(t *testing.T) {
	iface, _ := newTestInterface()
	old := iface.Current
	pending := &playspec.Playspec{ID: 7, InsertAt: 2, StartFrom: 50}
	iface.Pending = pending

	portL := make([]float32, 4)
	portR := make([]float32, 4)
	newFrame := iface.Process(4, 5, false, portL, portR)

	if newFrame != 53 {
		t.Errorf("expected 53 (50 + (5-2) late offset), got %d", newFrame)
	}
	if iface.Current != pending {
		t.Error("expected swap while transport not rolling")
	}
	if old.ReferencedByRealtime {
		t.Error("expected old playspec's referenced_by_realtime cleared")
	}
}

// Defensive same-pointer guard: pending == current is a no-op, not a swap.
func TestAttemptSwapSamePointerIsNoop(t *testing.T) {
	iface, _ := newTestInterface()
	iface.Pending = iface.Current

	frame, swapped := iface.attemptSwap(0, 0)
	if swapped {
		t.Error("expected no swap when pending equals current")
	}
	if frame != 0 {
		t.Errorf("expected frame unchanged, got %d", frame)
	}
	if iface.Pending != nil {
		t.Error("expected pending cleared after the same-pointer guard fires")
	}
}

// Property 5: the control thread's view of the current playspec ID updates
// only after draining the PLAYSPEC_APPLIED notification.
func TestControlSideReflectsSwapAfterDrain(t *testing.T) {
	iface, _ := newTestInterface()
	pending := &playspec.Playspec{ID: 9, InsertAt: 0, StartFrom: 0}
	iface.Pending = pending
	iface.ControlPendingPlayspec = pending

	portL := make([]float32, 4)
	portR := make([]float32, 4)
	iface.Process(4, 0, true, portL, portR)

	if iface.GetCurrentPlayspecID() == 9 {
		t.Error("control side should not see the swap before draining")
	}

	applied := iface.DrainControlQueue()
	if !applied {
		t.Fatal("expected DrainControlQueue to report a PLAYSPEC_APPLIED")
	}
	if iface.GetCurrentPlayspecID() != 9 {
		t.Errorf("expected control-side current playspec id 9, got %d", iface.GetCurrentPlayspecID())
	}
	if iface.ControlPendingPlayspec != nil {
		t.Error("expected control-side pending shadow cleared")
	}
}

func TestSetPlayspecRefusesWhilePending(t *testing.T) {
	iface, _ := newTestInterface()
	if !iface.SetPlayspec(&playspec.Playspec{ID: 1}) {
		t.Fatal("expected first SetPlayspec to succeed")
	}
	if iface.SetPlayspec(&playspec.Playspec{ID: 2}) {
		t.Error("expected second SetPlayspec to be refused while one is pending")
	}
}

// Applying a queued control task writes a log entry, mirroring write_log
// on the original's io_thread_set_pos.
func TestDrainOneControlTaskLogsApply(t *testing.T) {
	iface, _ := newTestInterface()
	if !iface.SetPosition(42) {
		t.Fatal("expected SetPosition to enqueue")
	}

	portL := make([]float32, 4)
	portR := make([]float32, 4)
	iface.Process(4, 0, true, portL, portR)

	out := make([]byte, 64)
	n := iface.Plane.ReadLogs(out)
	if string(out[:n]) != string(logSetPositionApplied) {
		t.Errorf("expected %q logged, got %q", logSetPositionApplied, out[:n])
	}
}

func TestReportedMirrorsUpdateOnDrain(t *testing.T) {
	iface, _ := newTestInterface()
	portL := make([]float32, 4)
	portR := make([]float32, 4)
	iface.Process(4, 17, true, portL, portR)

	iface.DrainControlQueue()
	if iface.GetPosition() != 17 {
		t.Errorf("expected reported position 17, got %d", iface.GetPosition())
	}
	if !iface.GetTransportRolling() {
		t.Error("expected reported transport rolling true")
	}
}
