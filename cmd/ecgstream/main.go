package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sleepywoodpecker/ecg-stream/internal/ads1115"
	"sleepywoodpecker/ecg-stream/internal/bus"
	"sleepywoodpecker/ecg-stream/internal/config"
	"sleepywoodpecker/ecg-stream/internal/logger"
	"sleepywoodpecker/ecg-stream/internal/pipeline"
	"sleepywoodpecker/ecg-stream/internal/source"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// context handler for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// first initialize the main logger
	logger, err := logger.NewLevelLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	src, closeSource, err := openSource(cfg, logger)
	if err != nil {
		logger.Fatal("[main] error opening sample source", zap.Error(err), zap.String("source", cfg.Source))
	}

	// the receiver must already be listening; there is no reconnect
	conn, err := net.DialTimeout("tcp", cfg.Endpoint, cfg.DialTimeout)
	if err != nil {
		closeSource()
		logger.Fatal("[main] error connecting to receiver", zap.Error(err), zap.String("endpoint", cfg.Endpoint))
	}
	logger.Info("[main] connected to receiver", zap.String("endpoint", cfg.Endpoint))

	p := pipeline.New(cfg.Pipeline(), src, pipeline.NewConnChannel(conn, cfg.SendTimeout), logger)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case sig := <-sigCh:
		logger.Info("[main] shutting down", zap.String("signal", sig.String()))
		cancel()
		err = <-done
	case err = <-done:
	}
	if err != nil {
		logger.Error("[main] pipeline stopped with error", zap.Error(err))
	}

	if err := multierr.Combine(closeSource(), conn.Close()); err != nil {
		logger.Warn("[main] error releasing resources", zap.Error(err))
	}
}

// openSource brings up the configured sample source and returns a function
// releasing whatever it opened.
func openSource(cfg config.Config, logger *zap.Logger) (source.SampleSource, func() error, error) {
	addr := uint16(cfg.Address)

	switch cfg.Source {
	case config.SourceI2C:
		b, err := bus.OpenI2C(cfg.I2CDevice, addr)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("[main] opened i2c bus", zap.String("device", cfg.I2CDevice), zap.Uint16("address", addr))
		return ads1115.New(b, cfg.ADC()), b.Close, nil

	case config.SourceSerial:
		b, err := bus.OpenSerialBridge(cfg.SerialPort, cfg.Baudrate, addr, logger)
		if err != nil {
			return nil, nil, err
		}
		// the front-end shares the bridge's DTR line; give it time to settle
		if err := b.SetFrontEnd(true); err != nil {
			logger.Warn("[main] error enabling analog front-end", zap.Error(err))
		} else {
			logger.Info("[main] analog front-end enabled", zap.Duration("settle", cfg.FrontEndSettle))
			time.Sleep(cfg.FrontEndSettle)
		}
		closeBridge := func() error {
			return multierr.Combine(b.SetFrontEnd(false), b.Close())
		}
		return ads1115.New(b, cfg.ADC()), closeBridge, nil

	case config.SourceReplay:
		f, err := os.Open(cfg.ReplayFile)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		r, err := source.NewReplay(f)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("[main] replaying recording", zap.String("file", cfg.ReplayFile), zap.Int("samples", r.Len()))
		return r, func() error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
}
