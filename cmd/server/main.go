package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"petquest.ai/internal/host"
	"petquest.ai/internal/logging"
	"petquest.ai/internal/sim/tuning"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (optional; PETQUEST_* env vars override it)")
		inPath     = flag.String("in", "-", "JSONL request file, - for stdin")
		snapAtEnd  = flag.Bool("snapshot_on_exit", true, "write a snapshot on exit when snapshot_dir is set")
	)
	flag.Parse()

	tune, err := tuning.LoadAll(strings.TrimSpace(*tuningPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(2)
	}
	logger, err := logging.New(tune.LogLevel, tune.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := host.Open(ctx, tune, logger)
	if err != nil {
		logger.WithError(err).Fatal("open runtime")
	}

	in, closeIn, err := openInput(*inPath)
	if err != nil {
		_ = rt.Close()
		logger.WithError(err).Fatal("open input")
	}
	defer closeIn()

	out := bufio.NewWriter(os.Stdout)
	enc := json.NewEncoder(out)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	n := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		resp := rt.HandleLine(ctx, []byte(line))
		if err := enc.Encode(resp); err != nil {
			logger.WithError(err).Error("write response")
			break
		}
		_ = out.Flush()
		n++
	}
	if err := sc.Err(); err != nil {
		logger.WithError(err).Error("read input")
	}

	if *snapAtEnd && tune.SnapshotDir != "" {
		if _, err := rt.Snapshot(context.Background()); err != nil {
			logger.WithError(err).Error("final snapshot")
		}
	}
	if err := rt.Close(); err != nil {
		logger.WithError(err).Error("close runtime")
	}
	logger.WithField("requests", n).Info("server stopped")
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
