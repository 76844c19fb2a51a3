// Package config holds the deployment settings of the streamer. Defaults
// match the reference hardware; every value can be overridden by a flag.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"time"

	"sleepywoodpecker/ecg-stream/internal/ads1115"
	"sleepywoodpecker/ecg-stream/internal/pipeline"
)

// Sample sources.
const (
	SourceI2C    = "i2c"
	SourceSerial = "serial"
	SourceReplay = "replay"
)

const (
	DefaultSource         = SourceI2C
	DefaultI2CDevice      = "/dev/i2c-1"
	DefaultBaudrate       = 460800
	DefaultEndpoint       = "192.168.1.77:9000"
	DefaultDialTimeout    = 10 * time.Second
	DefaultSendTimeout    = time.Second
	DefaultFrontEndSettle = time.Second
	DefaultLogFile        = "ecgstream.logs"
	DefaultLogLevel       = "info"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Source     string
	I2CDevice  string
	SerialPort string
	Baudrate   int
	Address    uint
	ReplayFile string

	Endpoint    string
	DialTimeout time.Duration
	SendTimeout time.Duration

	FrontEndSettle time.Duration
	SamplerCPU     int
	TransmitterCPU int

	LogFile  string
	LogLevel string
}

func Default() Config {
	return Config{
		Source:         DefaultSource,
		I2CDevice:      DefaultI2CDevice,
		Baudrate:       DefaultBaudrate,
		Address:        ads1115.DefaultAddress,
		Endpoint:       DefaultEndpoint,
		DialTimeout:    DefaultDialTimeout,
		SendTimeout:    DefaultSendTimeout,
		FrontEndSettle: DefaultFrontEndSettle,
		SamplerCPU:     pipeline.NoCPU,
		TransmitterCPU: pipeline.NoCPU,
		LogFile:        DefaultLogFile,
		LogLevel:       DefaultLogLevel,
	}
}

// Parse applies command-line flags on top of Default and validates the
// result.
func Parse(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("ecgstream", flag.ContinueOnError)
	fs.StringVar(&cfg.Source, "source", cfg.Source, "sample source: i2c, serial or replay")
	fs.StringVar(&cfg.I2CDevice, "i2c-device", cfg.I2CDevice, "i2c-dev character device")
	fs.StringVar(&cfg.SerialPort, "serial-port", cfg.SerialPort, "serial port of the I2C bridge")
	fs.IntVar(&cfg.Baudrate, "baudrate", cfg.Baudrate, "baud rate of the I2C bridge")
	fs.UintVar(&cfg.Address, "address", cfg.Address, "7-bit bus address of the ADC")
	fs.StringVar(&cfg.ReplayFile, "replay", cfg.ReplayFile, "WAV recording to replay instead of a sensor")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "receiver host:port")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout for connecting to the receiver")
	fs.DurationVar(&cfg.SendTimeout, "send-timeout", cfg.SendTimeout, "write deadline for each window, 0 for none")
	fs.DurationVar(&cfg.FrontEndSettle, "settle", cfg.FrontEndSettle, "wait after enabling the analog front-end")
	fs.IntVar(&cfg.SamplerCPU, "sampler-cpu", cfg.SamplerCPU, "CPU to pin the sampler to, -1 for none")
	fs.IntVar(&cfg.TransmitterCPU, "transmitter-cpu", cfg.TransmitterCPU, "CPU to pin the transmitter to, -1 for none")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file, empty for stderr only")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "minimum log level")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Source {
	case SourceI2C:
		if c.I2CDevice == "" {
			return fmt.Errorf("%w: i2c source needs a device", ErrInvalidConfig)
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("%w: serial source needs a port", ErrInvalidConfig)
		}
		if c.Baudrate <= 0 {
			return fmt.Errorf("%w: baud rate %d", ErrInvalidConfig, c.Baudrate)
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("%w: replay source needs a file", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}

	if c.Address > 0x7F {
		return fmt.Errorf("%w: address 0x%X is not a 7-bit address", ErrInvalidConfig, c.Address)
	}
	if _, _, err := net.SplitHostPort(c.Endpoint); err != nil {
		return fmt.Errorf("%w: endpoint %q: %v", ErrInvalidConfig, c.Endpoint, err)
	}
	if c.DialTimeout < 0 || c.SendTimeout < 0 || c.FrontEndSettle < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	if c.SamplerCPU < pipeline.NoCPU || c.TransmitterCPU < pipeline.NoCPU {
		return fmt.Errorf("%w: cpu must be -1 or a CPU index", ErrInvalidConfig)
	}
	return nil
}

// ADC returns the converter settings: continuous AIN0 at 475 SPS.
func (c Config) ADC() ads1115.Config {
	return ads1115.DefaultConfig()
}

// Pipeline derives the stage settings. The sampling period follows the
// converter's data rate.
func (c Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Period:         c.ADC().DataRate.Period(),
		SamplerCPU:     c.SamplerCPU,
		TransmitterCPU: c.TransmitterCPU,
	}
}
