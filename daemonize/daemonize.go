// Copyright (c) 2023 BVK Chaitanya

package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CheckFunc is called by the parent process to verify that the background
// process is initialized. It returns a nil error when the child is ready. A
// non-nil error with retry set to false stops the wait immediately.
type CheckFunc func(ctx context.Context, child *os.Process) (retry bool, err error)

// Daemonize respawns the current program in the background with the same
// command-line arguments. Daemonize must be called during the program startup
// before opening databases or starting servers.
//
// The envKey environment variable identifies the background process. It must
// not be used by any other process. When set, it holds the parent process
// pid.
//
// Standard input and outputs in the background process are replaced with
// /dev/null and the standard library log is redirected to syslog.
//
// When successful, Daemonize returns nil to the background process and exits
// the parent process. When unsuccessful, Daemonize returns non-nil error to the
// parent process and exits the background process.
func Daemonize(ctx context.Context, envKey string, check CheckFunc) error {
	if v := os.Getenv(envKey); len(v) == 0 {
		if err := daemonizeParent(ctx, envKey, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := daemonizeChild(); err != nil {
		os.Exit(1)
	}
	return nil
}

func daemonizeParent(ctx context.Context, envKey string, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("failed to lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}

	file, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open /dev/null: %w", err)
	}
	defer file.Close()

	// Receive signal when child-process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	env := append(os.Environ(), fmt.Sprintf("%s=%d", envKey, os.Getpid()))
	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   env,
		Files: []*os.File{file, file, file},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	if check != nil {
		time.Sleep(time.Second)
		for ctx.Err() == nil {
			retry, err := check(ctx, child)
			if err == nil {
				break
			}
			if !retry {
				return fmt.Errorf("background process failed to initialize: %w", err)
			}
			slog.WarnContext(ctx, "daemon process not yet initialized", "err", err)
			time.Sleep(time.Second)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func daemonizeChild() error {
	syslogger, err := syslog.New(syslog.LOG_INFO, "vinbot")
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
