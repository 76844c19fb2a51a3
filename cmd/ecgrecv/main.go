package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sleepywoodpecker/ecg-stream/internal/logger"
	"sleepywoodpecker/ecg-stream/internal/receiver"
)

const LISTEN_ADDR = ":9000"
const LOG_FILE_PATH = "ecgrecv.logs"

func main() {
	listenAddr := flag.String("listen", LISTEN_ADDR, "address to accept the stream on")
	wavPath := flag.String("wav", "", "append every window to this WAV file")
	fullScale := flag.Float64("fullscale", receiver.DefaultFullScale, "volts at the positive ADC limit")
	history := flag.Int("history", receiver.DefaultHistory, "number of recent windows to keep")
	logFile := flag.String("log", LOG_FILE_PATH, "log file, empty for stderr only")
	flag.Parse()

	// context handler for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := logger.NewLogger(*logFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var recorder *receiver.Recorder
	if *wavPath != "" {
		recorder, err = receiver.NewRecorder(*wavPath, receiver.DefaultSampleRate)
		if err != nil {
			logger.Fatal("[main] error creating recording", zap.Error(err), zap.String("file", *wavPath))
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Warn("[main] error closing recording", zap.Error(err))
			}
		}()
	}

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		logger.Fatal("[main] error listening", zap.Error(err), zap.String("addr", *listenAddr))
	}

	r := receiver.New(receiver.Config{FullScale: *fullScale, History: *history}, recorder, logger)
	if err := r.Serve(ctx, ln); err != nil {
		logger.Error("[main] receiver stopped with error", zap.Error(err))
	}
}
