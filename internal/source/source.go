// Package source defines what the sampler needs from a sensor and provides a
// file-backed implementation for running without hardware.
package source

import "sleepywoodpecker/ecg-stream/internal/window"

// SampleSource is the sensor as seen by the sampler: one configuration
// write at startup, then single-sample reads.
type SampleSource interface {
	Configure() error
	ReadSample() (window.Sample, error)
}
