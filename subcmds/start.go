// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Start struct {
	cmdutil.ClientFlags

	configFile  string
	maxAttempts int

	debug, headless optionalBool
}

func (c *Start) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("start", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.configFile, "config", "", "bot config file on the server host (default is the server's config)")
	fset.IntVar(&c.maxAttempts, "max-attempts", 0, "overrides the max polling attempts when positive")
	fset.Var(&c.debug, "debug", "when set, overrides the debug (confirm before order) setting")
	fset.Var(&c.headless, "headless", "when set, overrides the headless browser setting")
	return "start", fset, cli.CmdFunc(c.run)
}

func (c *Start) Purpose() string {
	return "Starts a new inventory polling run"
}

func (c *Start) Description() string {
	return `

Command "start" asks the vinbot server to start polling the inventory with
the given config file. Only one run can be active at a time. Config file path
is resolved on the client side and must be readable by the server.

  $ vinbot start -config=./config.yaml -debug=true

`
}

func (c *Start) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	req := &api.BotStartRequest{
		Debug:       c.debug.ptr(),
		Headless:    c.headless.ptr(),
		MaxAttempts: c.maxAttempts,
	}
	if len(c.configFile) != 0 {
		abs, err := filepath.Abs(c.configFile)
		if err != nil {
			return fmt.Errorf("could not determine config file %q absolute path: %w", c.configFile, err)
		}
		req.ConfigFile = abs
	}
	resp, err := cmdutil.Post[api.BotStartResponse](ctx, &c.ClientFlags, api.BotStartPath, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "Started run %s\n", resp.RunID)
	return nil
}
