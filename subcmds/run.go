// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/vinbot/config"
	"github.com/bvk/vinbot/ctxutil"
	"github.com/bvk/vinbot/daemonize"
	"github.com/bvk/vinbot/httputil"
	"github.com/bvk/vinbot/server"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof  bool
	noNotify bool
	debugLog bool

	secretsPath string
	configPath  string
	dataDir     string
	logDir      string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting or stopping the http listener")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.noNotify, "no-notify", false, "when true, run results are not sent to telegram or pushover")
	fset.BoolVar(&c.debugLog, "debug-log", false, "when true, debug messages are also logged")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file (default data-dir/secrets.json)")
	fset.StringVar(&c.configPath, "config", "", "default bot config file for start requests (default data-dir/config.json)")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory (default $HOME/.vinbot)")
	fset.StringVar(&c.logDir, "log-dir", "", "path to the log files directory in background mode (default data-dir/logs)")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the vinbot server in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the vinbot server. Server exports an HTTP api on the
listen address which is used by other commands like "start", "status" and
"stop" to control the inventory polling runs.

Only one server can use a data directory at a time. Run history is kept in a
database inside the data directory.

SECRETS FILE

Telegram and Pushover credentials are optional and are read from the secrets
file. Use "vinbot setup telegram" and "vinbot setup pushover" to create it. An
example secrets file format is given below:

    {
        "pushover":{
            "application_key":"111111111",
            "user_key":"2222222222"
        }
    }

PAYMENT DATA

Buyer and payment card details can be kept out of the config file. Variables
in the $HOME/.vinbot.env file (see "vinbot setup payment") are loaded when the
server starts and override the corresponding config file fields.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := cmdutil.DataDir(c.dataDir)
	if err != nil {
		return err
	}

	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := server.SecretsFromFile(c.secretsPath)
	if err != nil {
		return err
	}

	if len(c.configPath) == 0 {
		c.configPath = filepath.Join(dataDir, "config.json")
	}
	configPath, err := filepath.Abs(c.configPath)
	if err != nil {
		return fmt.Errorf("could not determine config file %q absolute path: %w", c.configPath, err)
	}

	if err := config.LoadEnvFile(); err != nil {
		return err
	}

	addr, err := c.ServerFlags.TCPAddr()
	if err != nil {
		return err
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context, child *os.Process) (bool, error) {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return true, fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, err
		}
		if pid := string(data); pid != fmt.Sprintf("%d", child.Pid) {
			return c.restart, fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return false, nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, "VINBOT_DAEMONIZE", check); err != nil {
			return err
		}

		if len(c.logDir) == 0 {
			c.logDir = filepath.Join(dataDir, "logs")
		}
		if err := os.MkdirAll(c.logDir, 0700); err != nil {
			return fmt.Errorf("could not create log directory %q: %w", c.logDir, err)
		}
		backend := sglog.NewBackend(&sglog.Options{
			LogDirs:        []string{c.logDir},
			LogFileMaxSize: 100 * 1024 * 1024,
		})
		defer backend.Close()
		if c.debugLog {
			backend.SetLevel(slog.LevelDebug)
		}
		slog.SetDefault(slog.New(backend.Handler()))
	} else if c.debugLog {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("using data directory", "data-dir", dataDir, "secrets-file", c.secretsPath, "config-file", configPath)

	lockPath := filepath.Join(dataDir, "vinbot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(&httputil.Options{ShutdownTimeout: c.shutdownTimeout})
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(filepath.Join(dataDir, "db")).WithLogger(nil)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, cmdutil.IsGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	sopts := &server.Options{
		ConfigFile: configPath,
		NoNotify:   c.noNotify,
	}
	vinbot, err := server.New(ctx, secrets, db, sopts)
	if err != nil {
		return err
	}
	defer vinbot.Close()

	apis := vinbot.HandlerMap()
	for k, v := range apis {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range apis {
			s.RemoveHandler(k)
		}
	}()

	slog.Info("started vinbot server", "addr", addr)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	<-ctx.Done()
	slog.Info("vinbot server is shutting down", "cause", context.Cause(ctx))
	return nil
}
