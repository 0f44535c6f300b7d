package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"tims/cmd"
	"tims/internal/config"
	"tims/internal/events"
	"tims/internal/util"
)

var log = logging.Logger("tims")

// setupLogging routes every subsystem logger to a file under the state
// directory so the terminal only shows the loader and alerts.
func setupLogging() (string, error) {
	level := "info"
	var logPath string
	if cfg, err := config.LoadAndValidateConfig(); err == nil {
		level = cfg.LogLevel
		logPath = cfg.LogPath()
	} else {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", herr
		}
		logPath = filepath.Join(home, config.StateDirName, "logs", "tims.log")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		lvl = logging.LevelInfo
	}
	logging.SetupLogging(logging.Config{
		Format: logging.PlaintextOutput,
		Level:  lvl,
		File:   logPath,
	})
	return logPath, nil
}

func main() {
	if _, err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	// Capture original terminal state so we can restore on forced exit.
	if err := util.SaveTerminal(int(os.Stdin.Fd())); err != nil {
		log.Warnw("failed to capture terminal state", "err", err)
	}
	forceExit := func(code int) {
		_ = util.RestoreGlobal()
		os.Exit(code)
	}

	// Context used to issue graceful cancellation to command tree.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	done := make(chan struct{})
	shutdown := make(chan struct{})
	var shutdownOnce sync.Once

	// Listen for shutdown events from components via EventBus
	_ = events.GlobalBus.Subscribe(events.EventShutdownRequested, func(reason string) {
		log.Infow("shutdown requested", "reason", reason)
		shutdownOnce.Do(func() {
			cancel()
			close(shutdown)
		})
	})
	_ = events.GlobalBus.Subscribe(events.EventSessionCompleted, func() {
		log.Debug("command finished its REST work")
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case s := <-sigs:
			events.GlobalBus.Publish(events.EventShutdownRequested, s.String())
		case <-done:
		}
	}()

	code := 0
	wg.Add(1)
	go func() {
		defer wg.Done()
		code = cmd.ExitCode(cmd.ExecuteContext(ctx))
		close(done)
	}()

	select {
	case <-shutdown:
		select {
		case <-done:
			log.Info("command exited cleanly after shutdown request")
		case <-time.After(5 * time.Second):
			log.Warn("timeout waiting for command after shutdown request, forcing exit")
			forceExit(1)
		}
	case <-done:
		util.Default.ClearLine()
	}

	wg.Wait()
	events.GlobalBus.Publish(events.EventShutdownComplete)

	// Restore terminal before normal exit if it was changed (best-effort)
	_ = util.RestoreGlobal()
	if code != 0 {
		os.Exit(code)
	}
}
