// Command amiodemo wires an amio engine to a real PortAudio device, loads
// one audio clip, and plays it on a loop for a few seconds. It exists to
// exercise the engine end-to-end outside of a host-language binding;
// production hosts call through package binding instead. Grounded on the
// teacher's client/main.go bootstrap shape (parse args, configure, run,
// clean shutdown), minus everything GUI/transport-specific it did that amio
// has no use for.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"os"
	"time"

	"amio/binding"
	"amio/engineconfig"

	"gopkg.in/hraban/opus.v2"
)

// decodeOpusPackets decodes a simple length-prefixed stream of raw Opus
// packets (uint32 big-endian length + packet bytes, repeated) into
// interleaved little-endian PCM16, matching the shape of the teacher's
// DecodeFrame helper but run once over a whole file instead of per-network
// packet. Not an Ogg demuxer: good enough for a demo fixture, not for
// arbitrary .opus files.
func decodeOpusPackets(path string, sampleRate, channels int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, err
	}

	const maxFrameSamples = 5760 // 120ms @ 48kHz, the Opus max frame size
	pcm := make([]int16, maxFrameSamples*channels)
	var out []byte

	for {
		var length uint32
		if err := binary.Read(f, binary.BigEndian, &length); err != nil {
			break // EOF or truncated trailer: stop, return what we decoded
		}
		packet := make([]byte, length)
		if _, err := f.Read(packet); err != nil {
			break
		}
		n, err := dec.Decode(packet, pcm)
		if err != nil {
			log.Printf("[amiodemo] decode packet: %v", err)
			continue
		}
		for i := 0; i < n*channels; i++ {
			out = append(out, byte(uint16(pcm[i])), byte(uint16(pcm[i])>>8))
		}
	}
	return out, nil
}

func main() {
	clipPath := flag.String("clip", "", "path to a length-prefixed raw Opus packet stream")
	playSeconds := flag.Int("seconds", 5, "how long to let the demo loop play")
	inputDevice := flag.Int("input-device", -1, "PortAudio input device index (-1 = default)")
	outputDevice := flag.Int("output-device", -1, "PortAudio output device index (-1 = default)")
	flag.Parse()

	if *clipPath == "" {
		log.Fatal("[amiodemo] -clip is required")
	}

	cfg := engineconfig.Load()
	cfg.InputDeviceID = *inputDevice
	cfg.OutputDeviceID = *outputDevice

	engine := binding.NewEngine(cfg)

	ifaceID := engine.CreateJackInterface("amiodemo")
	if ifaceID == -1 {
		log.Fatal("[amiodemo] failed to create interface")
	}
	defer engine.IfaceClose(ifaceID)

	pcm, err := decodeOpusPackets(*clipPath, int(cfg.SampleRate), 1)
	if err != nil {
		log.Fatalf("[amiodemo] decode clip: %v", err)
	}

	clipID := engine.AudioClipInit(pcm, 1, int(cfg.SampleRate))
	if clipID == -1 {
		log.Fatal("[amiodemo] clip store saturated")
	}

	frameCount := len(pcm) / 2 // int16 samples, mono
	if !engine.BeginDefiningPlayspec(1, 0, 0) {
		log.Fatal("[amiodemo] a playspec build is already in progress")
	}
	engine.SetEntryInPlayspec(0, clipID, 0, frameCount, 0, frameCount, 1.0, 1.0)

	if engine.IfaceSetPlayspec(ifaceID) == -1 {
		log.Fatal("[amiodemo] failed to set playspec")
	}

	if !engine.IfaceSetTransportRolling(ifaceID, 1) {
		log.Fatal("[amiodemo] failed to start transport")
	}

	deadline := time.Now().Add(time.Duration(*playSeconds) * time.Second)
	var logBuf [256]byte
	for time.Now().Before(deadline) {
		if engine.IfaceProcessMessagesOnPythonQueue(ifaceID) == 1 {
			log.Printf("[amiodemo] playspec %d is now current", engine.IfaceGetCurrentPlayspecID(ifaceID))
		}
		if n := engine.IfaceGetLogs(ifaceID, logBuf[:]); n > 0 {
			log.Printf("[amiodemo] %s", logBuf[:n])
		}
		time.Sleep(20 * time.Millisecond)
	}
}
