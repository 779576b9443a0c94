// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/server"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Confirm struct {
	cmdutil.ClientFlags

	yes     bool
	decline bool
}

func (c *Confirm) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("confirm", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.yes, "yes", false, "approves the order without prompting")
	fset.BoolVar(&c.decline, "decline", false, "declines the order")
	return "confirm", fset, cli.CmdFunc(c.run)
}

func (c *Confirm) Purpose() string {
	return "Approves or declines the order waiting for confirmation"
}

func (c *Confirm) Description() string {
	return `

Command "confirm" delivers the operator decision to a debug mode run that is
waiting before the final order click. Without -yes or -decline flags the
matched vehicle is printed and the decision is read from the terminal.

`
}

func (c *Confirm) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if c.yes && c.decline {
		return fmt.Errorf("flags -yes and -decline are mutually exclusive")
	}

	approve := !c.decline
	if !c.yes && !c.decline {
		ok, err := c.prompt(ctx)
		if err != nil {
			return err
		}
		approve = ok
	}

	req := &api.BotConfirmRequest{Approve: approve}
	if _, err := cmdutil.Post[api.BotConfirmResponse](ctx, &c.ClientFlags, api.BotConfirmPath, req); err != nil {
		return err
	}
	if approve {
		fmt.Fprintln(cli.Stdout(ctx), "Order approved.")
	} else {
		fmt.Fprintln(cli.Stdout(ctx), "Order declined.")
	}
	return nil
}

func (c *Confirm) prompt(ctx context.Context) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("standard input is not a terminal; use -yes or -decline")
	}

	status, err := cmdutil.Post[api.BotStatusResponse](ctx, &c.ClientFlags, api.BotStatusPath, &api.BotStatusRequest{})
	if err != nil {
		return false, err
	}
	if !status.AwaitingConfirmation || status.Run == nil {
		return false, fmt.Errorf("no order is waiting for confirmation")
	}

	stdout := cli.Stdout(ctx)
	fmt.Fprint(stdout, server.FormatRun(status.Run.RunRecord))
	fmt.Fprint(stdout, "Place the order? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("could not read the answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
