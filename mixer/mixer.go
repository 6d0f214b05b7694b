// Package mixer renders playspec fragments into stereo output buffers. It
// is a pure function of its inputs: Mix never allocates and never touches
// anything but the clip store, the playspec, and the two port slices it is
// given, so it is safe to call from the realtime thread every callback.
// Grounded on the original amio mixer.c and the mixing portion of
// interface.c (mix_playspec_into_jack_ports /
// mix_playspec_entry_into_jack_ports_at).
package mixer

import "amio/playspec"

// ClipLookup resolves a clip ID to its sample data. The mixer only needs
// the three clip fields below, so it depends on this narrow interface
// rather than importing package clip directly — keeping the mixer package
// free of any dependency on clip lifetime/reference-flag concerns.
type ClipLookup interface {
	// Lookup returns the clip's interleaved samples, channel count, and
	// whether a clip with that ID currently exists.
	Lookup(clipID int) (samples []int16, channels int, ok bool)
}

// ClearPorts zeroes portL and portR. The caller runs this once for the
// entire nframes block before mixing any playspec fragment into it.
func ClearPorts(portL, portR []float32) {
	for i := range portL {
		portL[i] = 0
		portR[i] = 0
	}
}

// ClampPorts saturates every sample in portL and portR to [-1.0, +1.0].
func ClampPorts(portL, portR []float32) {
	for i := range portL {
		portL[i] = clamp(portL[i])
		portR[i] = clamp(portR[i])
	}
}

func clamp(v float32) float32 {
	switch {
	case v >= 1.0:
		return 1.0
	case v <= -1.0:
		return -1.0
	default:
		return v
	}
}

// addClipDataAt accumulates clip samples between [clipA, clipB) into
// portL/portR, where portL[0]/portR[0] corresponds to the first frame of
// that clip range. Clip data is -32768..32767; port data is -1..+1, so the
// gain is normalized by 32768 here (§3: "the mixer, not the entry"). Mono
// clips fan out to both channels; stereo clips use interleaved L/R.
func addClipDataAt(portL, portR []float32, samples []int16, channels, clipA, clipB int, gainL, gainR float64) {
	if clipA >= clipB {
		return
	}
	gl := float32(gainL / 32768.0)
	gr := float32(gainR / 32768.0)

	if channels >= 2 {
		i := 0
		for n := clipA; n < clipB; n++ {
			portL[i] += float32(samples[n*channels+0]) * gl
			portR[i] += float32(samples[n*channels+1]) * gr
			i++
		}
	} else {
		i := 0
		for n := clipA; n < clipB; n++ {
			s := samples[n]
			portL[i] += float32(s) * gl
			portR[i] += float32(s) * gr
			i++
		}
	}
}

// mixEntryAt renders one occurrence of entry starting at aInPlayspec
// (already normalized for repetition, if any) against the output window
// [frameInPlayspec, frameInPlayspec+framesToCopy), clamping to both the
// window and the entry's own clip bounds. Grounded on
// mix_playspec_entry_into_jack_ports_at.
func mixEntryAt(entry *playspec.Entry, lookup ClipLookup, portL, portR []float32, aInPlayspec, frameInPlayspec, framesToCopy int) {
	samples, channels, ok := lookup.Lookup(entry.ClipID)
	if !ok {
		return
	}

	aInClip := entry.ClipFrameA
	bInClip := entry.ClipFrameB
	bInPlayspec := aInPlayspec + (bInClip - aInClip)

	windowEnd := frameInPlayspec + framesToCopy

	if aInPlayspec < frameInPlayspec {
		delta := frameInPlayspec - aInPlayspec
		aInPlayspec += delta
		aInClip += delta
	}
	if bInPlayspec > windowEnd {
		delta := bInPlayspec - windowEnd
		bInPlayspec -= delta
		bInClip -= delta
	}

	if aInPlayspec < bInPlayspec && aInPlayspec < windowEnd {
		offset := aInPlayspec - frameInPlayspec
		addClipDataAt(portL[offset:], portR[offset:], samples, channels, aInClip, bInClip, entry.GainL, entry.GainR)
	}
}

// Mix renders every entry of spec that overlaps the output window
// [frameInPlayspec, frameInPlayspec+framesToCopy) into portL/portR, which
// must each have length >= framesToCopy. Mixing is additive: callers that
// want a clean buffer must call ClearPorts first, and Mix never clamps —
// call ClampPorts once after mixing every fragment for a callback.
//
// Periodic entries (RepeatInterval > 0) are rendered by normalizing
// PlayAtFrame into [0, RepeatInterval) and walking backwards from the
// latest repetition that could overlap the window, one repeat at a time,
// until a repetition's occurrence cannot reach the window start.
func Mix(spec *playspec.Playspec, lookup ClipLookup, portL, portR []float32, frameInPlayspec, framesToCopy int) {
	if spec == nil || framesToCopy <= 0 {
		return
	}

	for i := range spec.Entries {
		entry := &spec.Entries[i]

		if entry.RepeatInterval == 0 {
			mixEntryAt(entry, lookup, portL, portR, entry.PlayAtFrame, frameInPlayspec, framesToCopy)
			continue
		}

		interval := entry.RepeatInterval
		playAt := entry.PlayAtFrame - (entry.PlayAtFrame/interval)*interval

		endFrame := frameInPlayspec + framesToCopy
		aInPlayspec := (endFrame/interval)*interval + playAt

		clipLen := entry.ClipFrameB - entry.ClipFrameA
		for aInPlayspec+clipLen >= frameInPlayspec {
			mixEntryAt(entry, lookup, portL, portR, aInPlayspec, frameInPlayspec, framesToCopy)
			aInPlayspec -= interval
		}
	}
}
