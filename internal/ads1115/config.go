package ads1115

import "time"

// Register pointers.
const (
	RegConversion byte = 0x00
	RegConfig     byte = 0x01
)

// DefaultAddress is the bus address with the ADDR pin tied to ground.
const DefaultAddress = 0x48

// Mux selects the input pair of the converter.
type Mux uint16

const (
	MuxAIN0AIN1 Mux = iota
	MuxAIN0AIN3
	MuxAIN1AIN3
	MuxAIN2AIN3
	MuxAIN0GND
	MuxAIN1GND
	MuxAIN2GND
	MuxAIN3GND
)

// Gain selects the programmable gain amplifier range.
type Gain uint16

const (
	Gain6144 Gain = iota
	Gain4096
	Gain2048
	Gain1024
	Gain512
	Gain256
)

// FullScale returns the positive full-scale input voltage for the gain.
func (g Gain) FullScale() float64 {
	switch g {
	case Gain6144:
		return 6.144
	case Gain4096:
		return 4.096
	case Gain2048:
		return 2.048
	case Gain1024:
		return 1.024
	case Gain512:
		return 0.512
	default:
		return 0.256
	}
}

// DataRate selects the conversion rate.
type DataRate uint16

const (
	Rate8 DataRate = iota
	Rate16
	Rate32
	Rate64
	Rate128
	Rate250
	Rate475
	Rate860
)

var samplesPerSecond = [...]int{8, 16, 32, 64, 128, 250, 475, 860}

func (r DataRate) SamplesPerSecond() int {
	return samplesPerSecond[r&0x7]
}

// Period is the time between two conversions at this rate.
func (r DataRate) Period() time.Duration {
	return time.Second / time.Duration(r.SamplesPerSecond())
}

// Mode selects continuous or single-shot conversion.
type Mode uint16

const (
	ModeContinuous Mode = 0
	ModeSingleShot Mode = 1
)

// Config mirrors the fields of the 16-bit config register.
type Config struct {
	StartConversion bool
	Mux             Mux
	Gain            Gain
	Mode            Mode
	DataRate        DataRate
	ComparatorMode  uint16
	ComparatorPol   uint16
	ComparatorLatch uint16
	ComparatorQueue uint16
}

// DefaultConfig samples AIN0 against ground, continuously at 475 SPS with a
// +/-4.096 V range and the comparator disabled. Its word is 0x42C3.
func DefaultConfig() Config {
	return Config{
		Mux:             MuxAIN0GND,
		Gain:            Gain4096,
		Mode:            ModeContinuous,
		DataRate:        Rate475,
		ComparatorQueue: 0x3,
	}
}

// Word packs the config into the register layout:
// OS[15] MUX[14:12] PGA[11:9] MODE[8] DR[7:5] COMP_MODE[4] COMP_POL[3] COMP_LAT[2] COMP_QUE[1:0].
func (c Config) Word() uint16 {
	var w uint16
	if c.StartConversion {
		w |= 1 << 15
	}
	w |= uint16(c.Mux&0x7) << 12
	w |= uint16(c.Gain&0x7) << 9
	w |= uint16(c.Mode&0x1) << 8
	w |= uint16(c.DataRate&0x7) << 5
	w |= (c.ComparatorMode & 0x1) << 4
	w |= (c.ComparatorPol & 0x1) << 3
	w |= (c.ComparatorLatch & 0x1) << 2
	w |= c.ComparatorQueue & 0x3
	return w
}
