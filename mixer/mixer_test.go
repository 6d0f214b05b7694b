package mixer

import (
	"testing"

	"amio/playspec"
)

// fakeClips is a minimal ClipLookup over a map, used to test the mixer in
// isolation from package clip.
type fakeClips map[int]struct {
	samples  []int16
	channels int
}

func (f fakeClips) Lookup(clipID int) ([]int16, int, bool) {
	c, ok := f[clipID]
	if !ok {
		return nil, 0, false
	}
	return c.samples, c.channels, true
}

func oneShotSpec(clipID, a, b, playAt, repeat int, gain float64) *playspec.Playspec {
	return &playspec.Playspec{
		Entries: []playspec.Entry{{
			ClipID:         clipID,
			ClipFrameA:     a,
			ClipFrameB:     b,
			PlayAtFrame:    playAt,
			RepeatInterval: repeat,
			GainL:          gain,
			GainR:          gain,
		}},
	}
}

func almostEqual(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}

// S1 — basic one-shot.
func TestS1BasicOneShot(t *testing.T) {
	clips := fakeClips{1: {samples: []int16{1000, 2000, 3000, 4000}, channels: 1}}
	spec := oneShotSpec(1, 0, 4, 0, 0, 1.0)

	portL := make([]float32, 4)
	portR := make([]float32, 4)
	Mix(spec, clips, portL, portR, 0, 4)

	want := []float32{1000.0 / 32768, 2000.0 / 32768, 3000.0 / 32768, 4000.0 / 32768}
	for i := range want {
		if !almostEqual(portL[i], want[i]) || !almostEqual(portR[i], want[i]) {
			t.Errorf("frame %d: got L=%v R=%v, want %v", i, portL[i], portR[i], want[i])
		}
	}
}

// S2 — windowed read.
func TestS2WindowedRead(t *testing.T) {
	clips := fakeClips{1: {samples: []int16{1000, 2000, 3000, 4000}, channels: 1}}
	spec := oneShotSpec(1, 0, 4, 2, 0, 1.0)

	portL := make([]float32, 8)
	portR := make([]float32, 8)
	Mix(spec, clips, portL, portR, 0, 8)

	for i := 0; i < 2; i++ {
		if portL[i] != 0 || portR[i] != 0 {
			t.Errorf("frame %d expected silence, got L=%v R=%v", i, portL[i], portR[i])
		}
	}
	want := []float32{1000.0 / 32768, 2000.0 / 32768, 3000.0 / 32768, 4000.0 / 32768}
	for i := 0; i < 4; i++ {
		if !almostEqual(portL[2+i], want[i]) {
			t.Errorf("frame %d: got %v, want %v", 2+i, portL[2+i], want[i])
		}
	}
	for i := 6; i < 8; i++ {
		if portL[i] != 0 || portR[i] != 0 {
			t.Errorf("frame %d expected silence, got L=%v R=%v", i, portL[i], portR[i])
		}
	}
}

// S3 — periodic.
func TestS3Periodic(t *testing.T) {
	clips := fakeClips{1: {samples: []int16{5000, 6000}, channels: 1}}
	spec := oneShotSpec(1, 0, 2, 5, 4, 1.0)

	portL := make([]float32, 12)
	portR := make([]float32, 12)
	Mix(spec, clips, portL, portR, 0, 12)

	hits := []int{1, 5, 9}
	for _, h := range hits {
		if portL[h] == 0 {
			t.Errorf("expected a hit at frame %d, got silence", h)
		}
	}
	// frame 0 is silent: normalized play_at=1, so hit starts at 1 not 0.
	if portL[0] != 0 {
		t.Errorf("expected silence at frame 0, got %v", portL[0])
	}
}

// Property 3: mixer linearity — mixing two playspecs' worth of output
// separately and summing equals mixing their entries together (pre-clamp).
func TestMixerIsLinear(t *testing.T) {
	clips := fakeClips{
		1: {samples: []int16{1000, 2000, 3000, 4000}, channels: 1},
		2: {samples: []int16{500, -500, 1500, -1500}, channels: 1},
	}
	a := oneShotSpec(1, 0, 4, 0, 0, 1.0)
	b := oneShotSpec(2, 0, 4, 1, 0, 0.5)
	combined := &playspec.Playspec{Entries: append(append([]playspec.Entry{}, a.Entries...), b.Entries...)}

	la, ra := make([]float32, 4), make([]float32, 4)
	lb, rb := make([]float32, 4), make([]float32, 4)
	lc, rc := make([]float32, 4), make([]float32, 4)

	Mix(a, clips, la, ra, 0, 4)
	Mix(b, clips, lb, rb, 0, 4)
	Mix(combined, clips, lc, rc, 0, 4)

	for i := 0; i < 4; i++ {
		sumL := la[i] + lb[i]
		sumR := ra[i] + rb[i]
		if !almostEqual(sumL, lc[i]) {
			t.Errorf("L[%d]: sum %v != combined %v", i, sumL, lc[i])
		}
		if !almostEqual(sumR, rc[i]) {
			t.Errorf("R[%d]: sum %v != combined %v", i, sumR, rc[i])
		}
	}
}

func TestClearAndClampPorts(t *testing.T) {
	portL := []float32{2.0, -2.0, 0.5}
	portR := []float32{1.5, -1.5, -0.5}

	ClampPorts(portL, portR)
	want := []float32{1.0, -1.0, 0.5}
	for i, v := range want {
		if portL[i] != v {
			t.Errorf("portL[%d]: got %v, want %v", i, portL[i], v)
		}
	}

	ClearPorts(portL, portR)
	for i := range portL {
		if portL[i] != 0 || portR[i] != 0 {
			t.Errorf("expected zeroed ports at %d", i)
		}
	}
}

func TestMissingClipSkipped(t *testing.T) {
	clips := fakeClips{}
	spec := oneShotSpec(999, 0, 4, 0, 0, 1.0)
	portL := make([]float32, 4)
	portR := make([]float32, 4)
	Mix(spec, clips, portL, portR, 0, 4) // must not panic
	for _, v := range portL {
		if v != 0 {
			t.Error("expected silence for missing clip")
		}
	}
}

func TestStereoClipInterleaving(t *testing.T) {
	clips := fakeClips{1: {samples: []int16{100, -100, 200, -200}, channels: 2}}
	spec := oneShotSpec(1, 0, 2, 0, 0, 1.0)
	portL := make([]float32, 2)
	portR := make([]float32, 2)
	Mix(spec, clips, portL, portR, 0, 2)

	if !almostEqual(portL[0], 100.0/32768) || !almostEqual(portR[0], -100.0/32768) {
		t.Errorf("frame 0: got L=%v R=%v", portL[0], portR[0])
	}
	if !almostEqual(portL[1], 200.0/32768) || !almostEqual(portR[1], -200.0/32768) {
		t.Errorf("frame 1: got L=%v R=%v", portL[1], portR[1])
	}
}
