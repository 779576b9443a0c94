// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/gobs"
	"github.com/bvk/vinbot/telegram"
	"github.com/visvasity/cli"
)

func (s *Server) AddTelegramCommand(ctx context.Context, name, purpose string, handler telegram.CmdFunc) error {
	if s.telegramClient != nil {
		return s.telegramClient.AddCommand(ctx, name, purpose, handler)
	}
	return nil // Ignored
}

func (s *Server) addTelegramCommands(ctx context.Context) error {
	cmds := []struct {
		name, purpose string
		handler       telegram.CmdFunc
	}{
		{"status", "Prints the current or last run status", s.statusTelegramCmd},
		{"start", "Starts a new run with the default config file", s.startTelegramCmd},
		{"stop", "Stops the current run", s.stopTelegramCmd},
		{"confirm", "Approves the pending order; use 'confirm decline' to decline", s.confirmTelegramCmd},
	}
	for _, c := range cmds {
		if err := s.AddTelegramCommand(ctx, c.name, c.purpose, c.handler); err != nil {
			return fmt.Errorf("could not add telegram command %q: %w", c.name, err)
		}
	}
	return nil
}

// FormatRun prints a short human readable run summary.
func FormatRun(run *gobs.RunRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run: %s\n", run.RunID)
	fmt.Fprintf(&sb, "Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.Running() {
		fmt.Fprintf(&sb, "State: running\n")
	} else {
		fmt.Fprintf(&sb, "Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&sb, "Outcome: %s\n", run.Outcome)
	}
	fmt.Fprintf(&sb, "Attempts: %d (failed %d, gated %d)\n", run.Attempts, run.FailedAttempts, run.GatedAttempts)
	if len(run.Error) != 0 {
		fmt.Fprintf(&sb, "Error: %s\n", run.Error)
	}
	if l := run.Listing; l != nil {
		fmt.Fprintf(&sb, "Vehicle: %s %s %s %s\n", l.VIN, l.Trim, l.Color, l.Price.StringFixed(0))
	}
	if o := run.Order; o != nil {
		fmt.Fprintf(&sb, "Order: %s", o.Result)
		if len(o.Step) != 0 && o.Result != "Completed" {
			fmt.Fprintf(&sb, " at %s", o.Step)
		}
		if len(o.Reason) != 0 {
			fmt.Fprintf(&sb, " (%s)", o.Reason)
		}
		fmt.Fprintln(&sb)
	}
	return sb.String()
}

func (s *Server) statusTelegramCmd(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)
	status := s.bot.Status()
	if status.Run == nil {
		fmt.Fprintln(stdout, "No runs since the server started.")
		return nil
	}
	fmt.Fprint(stdout, FormatRun(status.Run))
	if status.AwaitingConfirmation {
		fmt.Fprintln(stdout, "Order is waiting for /confirm")
	}
	return nil
}

func (s *Server) startTelegramCmd(ctx context.Context, args []string) error {
	resp, err := s.doStart(ctx, &api.BotStartRequest{})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "Started run %s\n", resp.RunID)
	return nil
}

func (s *Server) stopTelegramCmd(ctx context.Context, args []string) error {
	resp, err := s.doStop(ctx, &api.BotStopRequest{})
	if err != nil {
		return err
	}
	if resp.Run != nil {
		fmt.Fprint(cli.Stdout(ctx), FormatRun(resp.Run.RunRecord))
	}
	return nil
}

func (s *Server) confirmTelegramCmd(ctx context.Context, args []string) error {
	approve := true
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "yes", "approve":
		case "no", "decline":
			approve = false
		default:
			return fmt.Errorf("unknown argument %q; use approve or decline", args[0])
		}
	}
	if err := s.bot.Confirm(approve); err != nil {
		return err
	}
	if approve {
		fmt.Fprintln(cli.Stdout(ctx), "Order approved.")
	} else {
		fmt.Fprintln(cli.Stdout(ctx), "Order declined.")
	}
	return nil
}
