// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/server"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Prints the current or last run status"
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	resp, err := cmdutil.Post[api.BotStatusResponse](ctx, &c.ClientFlags, api.BotStatusPath, &api.BotStatusRequest{})
	if err != nil {
		return err
	}

	stdout := cli.Stdout(ctx)
	fmt.Fprintf(stdout, "Server up since %s (%s)\n", resp.ServerStartTime.Format(time.DateTime), time.Since(resp.ServerStartTime).Round(time.Second))
	if resp.Run == nil {
		fmt.Fprintln(stdout, "No runs since the server started.")
		return nil
	}
	fmt.Fprint(stdout, server.FormatRun(resp.Run.RunRecord))
	if resp.AwaitingConfirmation {
		fmt.Fprintln(stdout, `Order is waiting for "vinbot confirm"`)
	}
	return nil
}
