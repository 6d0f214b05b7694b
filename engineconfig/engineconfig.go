// Package engineconfig manages persistent tunables for an amio engine
// process. Settings are stored as JSON at os.UserConfigDir()/amio/config.json.
// Grounded on the teacher's internal/config/config.go Default/Load/Save/Path
// triad, generalized from UI preferences to engine sizing knobs.
package engineconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds every tunable the engine's fixed-size, allocation-free
// components need at construction time. There is no live-reload path: the
// host reads this once at startup, before any interface is created.
type Config struct {
	SampleRate      float64 `json:"sample_rate"`
	FramesPerBuffer int     `json:"frames_per_buffer"`
	InputDeviceID   int     `json:"input_device_id"`
	OutputDeviceID  int     `json:"output_device_id"`

	MaxInterfaces int `json:"max_interfaces"`
	MaxAudioClips int `json:"max_audio_clips"`

	// ControlToRealtimeQueueSize sizes both task rings in queue.Plane. Must
	// be a power of two. RealtimeToControlQueueSize is loaded and saved but
	// not read when a plane is built: the realtime->control ring also takes
	// ControlToRealtimeQueueSize.
	ControlToRealtimeQueueSize int `json:"control_to_realtime_queue_size"`
	RealtimeToControlQueueSize int `json:"realtime_to_control_queue_size"`

	// LogQueueSize and InputChunkQueueSize size queue.Plane's auxiliary
	// rings. Must be a power of two.
	LogQueueSize        int `json:"log_queue_size"`
	InputChunkQueueSize int `json:"input_chunk_queue_size"`
}

// Default returns a Config sized for a modest desktop session: four
// interfaces, 256 resident clips, and queue depths generous enough that a
// momentary control-thread stall doesn't drop messages.
func Default() Config {
	return Config{
		SampleRate:                 48000,
		FramesPerBuffer:            256,
		InputDeviceID:              -1,
		OutputDeviceID:             -1,
		MaxInterfaces:              4,
		MaxAudioClips:              256,
		ControlToRealtimeQueueSize: 64,
		RealtimeToControlQueueSize: 256,
		LogQueueSize:               4096,
		InputChunkQueueSize:        64,
	}
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "amio", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing or
// unreadable, the default config is returned — never an error.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
