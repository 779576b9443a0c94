// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/bot"
	"github.com/bvk/vinbot/gobs"
	"github.com/bvk/vinbot/kvutil"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"
)

type History struct {
	cmdutil.DBFlags

	limit int
}

func (c *History) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("history", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.IntVar(&c.limit, "limit", 20, "max number of runs to print; zero prints all")
	return "history", fset, cli.CmdFunc(c.run)
}

func (c *History) Purpose() string {
	return "Prints the run journal, newest first"
}

func (c *History) Description() string {
	return `

Command "history" prints past runs from the server's run journal. When one of
-data-dir or -from-backup flags is given, runs are read from the database
directly and the server need not be running.

`
}

func (c *History) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	if c.limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	var runs []*gobs.RunRecord
	if c.DBFlags.IsRemoteDatabase() {
		req := &api.BotHistoryRequest{Limit: c.limit}
		resp, err := cmdutil.Post[api.BotHistoryResponse](ctx, &c.DBFlags.ClientFlags, api.BotHistoryPath, req)
		if err != nil {
			return err
		}
		for _, r := range resp.Runs {
			runs = append(runs, r.RunRecord)
		}
	} else {
		db, closer, err := c.DBFlags.GetDatabase(ctx)
		if err != nil {
			return err
		}
		defer closer()

		collect := func(_ context.Context, _ kv.Reader, _ string, v *gobs.RunRecord) error {
			runs = append(runs, v)
			if c.limit > 0 && len(runs) >= c.limit {
				return kvutil.ErrStop
			}
			return nil
		}
		begin, end := kvutil.PathRange(bot.RunsDir)
		if err := kvutil.DescendDB(ctx, db, begin, end, collect); err != nil {
			return fmt.Errorf("could not scan run records: %w", err)
		}
	}

	printRuns(cli.Stdout(ctx), runs)
	return nil
}

func printRuns(w io.Writer, runs []*gobs.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "RunID\tStarted\tDuration\tOutcome\tAttempts\tFailed\tVIN\tOrder\t\n")
	for _, r := range runs {
		outcome, duration := r.Outcome, ""
		if r.Running() {
			outcome = "Running"
			duration = time.Since(r.StartedAt).Round(time.Second).String()
		} else {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		vin, order := "-", "-"
		if r.Listing != nil {
			vin = r.Listing.VIN
		}
		if r.Order != nil {
			order = r.Order.Result
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t\n", r.RunID, r.StartedAt.Format(time.DateTime), duration, outcome, r.Attempts, r.FailedAttempts, vin, order)
	}
	tw.Flush()
}
