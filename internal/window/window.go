// Package window holds the fixed-size sample windows shared by the
// acquisition and transmission stages.
package window

// Sample is one signed 16-bit ADC reading.
type Sample = int16

const (
	// RawSize is the number of samples collected per acquisition window.
	RawSize = 950
	// ReducedSize is the number of samples per transmitted window.
	ReducedSize = 720
)

// Raw is one acquisition window. Raw windows are allocated once by the
// buffer pool and reused for the lifetime of the pipeline.
type Raw [RawSize]Sample

// Reduced is one resampled window, ready to be encoded.
type Reduced [ReducedSize]Sample
