// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/server"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Stop struct {
	cmdutil.ClientFlags
}

func (c *Stop) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("stop", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "stop", fset, cli.CmdFunc(c.run)
}

func (c *Stop) Purpose() string {
	return "Stops the active run and prints its final state"
}

func (c *Stop) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	resp, err := cmdutil.Post[api.BotStopResponse](ctx, &c.ClientFlags, api.BotStopPath, &api.BotStopRequest{})
	if err != nil {
		return err
	}
	if resp.Run != nil {
		fmt.Fprint(cli.Stdout(ctx), server.FormatRun(resp.Run.RunRecord))
	}
	return nil
}
