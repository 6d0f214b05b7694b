package driver

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// Processor is the realtime callback surface a driver drives every buffer.
// ifaceengine.Interface satisfies this without driver importing
// ifaceengine: driver only needs the two methods it calls each callback, and
// ifaceengine already depends on driver.Contract, so this interface must
// live on this side to avoid a cycle.
type Processor interface {
	Process(nframes int, frameInPlayspec int, transportRolling bool, portL, portR []float32) int
	ProcessInput(nframes int, portL, portR []float32, startingFrame int, transportRolling bool)
}

// frameRateReporter is implemented by a Processor that wants to learn the
// sample rate PortAudio actually opened the stream at. ifaceengine.Interface
// implements it; the type assertion in Init keeps driver from importing
// ifaceengine just for this one optional call.
type frameRateReporter interface {
	ReportFrameRate(rate int)
}

// paStream abstracts the subset of *portaudio.Stream this driver calls, the
// same seam the teacher's client/audio.go cuts with its own paStream
// interface, so Destroy's stop-before-close ordering can be exercised with a
// fake in driver_test.go instead of real hardware.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

// PortAudio is a driver.Contract and driver.Lifecycle implementation backed
// by github.com/gordonklaus/portaudio, running a duplex stereo stream at a
// fixed frames-per-buffer. Grounded on the teacher's client/audio.go
// AudioEngine.Start/Stop: device resolution via resolveDevice, and the same
// stop-before-close ordering (Stop unblocks the realtime callback; only
// once the stream has actually stopped is it safe to free the native
// stream object with Close).
type PortAudio struct {
	SampleRate      float64
	FramesPerBuffer int
	InputDeviceID   int // -1 selects the system default input device
	OutputDeviceID  int // -1 selects the system default output device

	proc Processor

	stream paStream

	position atomic.Int64
	rolling  atomic.Bool

	// Realtime-owned de-interleave scratch buffers, sized once in Init so
	// the callback never allocates.
	inL, inR   []float32
	outL, outR []float32
}

// NewPortAudio returns a driver that drives proc.Process/proc.ProcessInput
// on every realtime callback.
func NewPortAudio(proc Processor, sampleRate float64, framesPerBuffer, inputDeviceID, outputDeviceID int) *PortAudio {
	return &PortAudio{
		proc:            proc,
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
		InputDeviceID:   inputDeviceID,
		OutputDeviceID:  outputDeviceID,
	}
}

// SetProcessor attaches the Processor driven by the realtime callback. Must
// be called before Init; it exists separately from NewPortAudio so a
// binding layer can construct the driver and the processor that references
// it (as a driver.Contract) in either order.
func (p *PortAudio) SetProcessor(proc Processor) {
	p.proc = proc
}

// SetPosition implements driver.Contract. It takes effect on the next
// realtime callback.
func (p *PortAudio) SetPosition(position int) {
	p.position.Store(int64(position))
}

// SetTransportRolling implements driver.Contract.
func (p *PortAudio) SetTransportRolling(rolling bool) {
	p.rolling.Store(rolling)
}

// resolveDevice returns the device at idx if valid, otherwise calls fallback.
func resolveDevice(devices []*portaudio.DeviceInfo, idx int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return fallback()
}

// Init implements driver.Lifecycle: resolves input/output devices, opens a
// duplex stereo stream at SampleRate/FramesPerBuffer, and starts it.
func (p *PortAudio) Init() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	inputDev, err := resolveDevice(devices, p.InputDeviceID, portaudio.DefaultInputDevice)
	if err != nil {
		return fmt.Errorf("resolve input device: %w", err)
	}
	outputDev, err := resolveDevice(devices, p.OutputDeviceID, portaudio.DefaultOutputDevice)
	if err != nil {
		return fmt.Errorf("resolve output device: %w", err)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inputDev,
			Channels: 2,
			Latency:  inputDev.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outputDev,
			Channels: 2,
			Latency:  outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      p.SampleRate,
		FramesPerBuffer: p.FramesPerBuffer,
	}

	n := p.FramesPerBuffer
	p.inL = make([]float32, n)
	p.inR = make([]float32, n)
	p.outL = make([]float32, n)
	p.outR = make([]float32, n)

	stream, err := portaudio.OpenStream(params, p.callback)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	p.stream = stream

	if reporter, ok := p.proc.(frameRateReporter); ok {
		reporter.ReportFrameRate(int(p.SampleRate))
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		p.stream = nil
		return fmt.Errorf("start stream: %w", err)
	}
	return nil
}

// callback runs on PortAudio's realtime thread for every buffer: it
// de-interleaves captured input into portL/portR scratch buffers, feeds
// them to proc.ProcessInput, asks proc.Process to render this buffer's
// output, and re-interleaves the result.
func (p *PortAudio) callback(in, out [][]float32) {
	nframes := len(out[0])

	copy(p.inL[:nframes], in[0][:nframes])
	copy(p.inR[:nframes], in[1][:nframes])

	rolling := p.rolling.Load()
	startingFrame := int(p.position.Load())

	p.proc.ProcessInput(nframes, p.inL[:nframes], p.inR[:nframes], startingFrame, rolling)

	newPos := p.proc.Process(nframes, startingFrame, rolling, p.outL[:nframes], p.outR[:nframes])
	// Advance only if SetPosition did not move the position during Process.
	p.position.CompareAndSwap(int64(startingFrame), int64(newPos))

	copy(out[0][:nframes], p.outL[:nframes])
	copy(out[1][:nframes], p.outR[:nframes])
}

// Destroy implements driver.Lifecycle.
func (p *PortAudio) Destroy() {
	if p.stream == nil {
		return
	}
	// Stop before Close: Stop unblocks the realtime thread's in-flight
	// callback; only once it has returned is it safe to free the native
	// stream object.
	p.stream.Stop()
	p.stream.Close()
	p.stream = nil
}
