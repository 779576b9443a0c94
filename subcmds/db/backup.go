// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/vinbot/kvutil"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Backup struct {
	cmdutil.DBFlags
}

func (c *Backup) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := new(flag.FlagSet)
	c.DBFlags.SetFlags(fset)
	return "backup", fset, cli.CmdFunc(c.run)
}

func (c *Backup) Purpose() string {
	return "Takes a backup of the database into a file"
}

func (c *Backup) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("command takes one (output backup file) argument")
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return fmt.Errorf("could not get database instance: %w", err)
	}
	defer closer()

	n, err := kvutil.BackupDB(ctx, db, args[0])
	if err != nil {
		return fmt.Errorf("could not backup the database: %w", err)
	}
	fmt.Fprintf(cli.Stdout(ctx), "Saved %d items in %s\n", n, args[0])
	return nil
}
