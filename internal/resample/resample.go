// Package resample reduces acquisition windows to transmission windows by
// linear interpolation.
//
// No low-pass filter runs before decimation, so content above the Nyquist
// frequency of the reduced rate (180 Hz for 475 SPS reduced 950->720) aliases
// into the output. ECG energy sits well below that, which is why the
// simple interpolator is acceptable here.
package resample

import (
	"errors"
	"fmt"
	"math"

	"sleepywoodpecker/ecg-stream/internal/window"
)

var ErrEmptyWindow = errors.New("resample: empty window")

// Window reduces a full raw window into dst.
func Window(dst *window.Reduced, src *window.Raw) {
	// both lengths are non-zero constants
	_ = Linear(dst[:], src[:])
}

// Linear fills dst with len(dst) samples interpolated from src.
//
// Output sample i sits at source position p = i*len(src)/len(dst). The value
// is in[lo]*(1-f) + in[hi]*f with lo = floor(p), hi = lo+1 and f = p-lo,
// rounded half away from zero and saturated to the int16 range. When hi falls
// past the end of src it is clamped to the last sample and f is taken as 0.
func Linear(dst, src []window.Sample) error {
	if len(dst) == 0 || len(src) == 0 {
		return fmt.Errorf("%w: len(dst)=%d len(src)=%d", ErrEmptyWindow, len(dst), len(src))
	}

	n := len(src)
	ratio := float64(n) / float64(len(dst))

	for i := range dst {
		p := float64(i) * ratio
		lo := int(p)
		hi := lo + 1
		f := p - float64(lo)

		if lo >= n {
			lo = n - 1
		}
		if hi >= n {
			hi = n - 1
			f = 0
		}

		v := float64(src[lo])*(1-f) + float64(src[hi])*f
		dst[i] = saturate(math.Round(v))
	}

	return nil
}

func saturate(v float64) window.Sample {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return window.Sample(v)
}
