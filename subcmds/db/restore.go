// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bvk/vinbot/kvutil"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"
)

type Restore struct {
	cmdutil.DBFlags
}

func (c *Restore) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := new(flag.FlagSet)
	c.DBFlags.SetFlags(fset)
	return "restore", fset, cli.CmdFunc(c.run)
}

func (c *Restore) Purpose() string {
	return "Restores the database from a backup file"
}

func (c *Restore) Description() string {
	return `

Command "restore" replaces all keys in the database with the contents of a
backup file taken by the "backup" command. Existing keys are removed in the
same transaction so a failed restore leaves the database unchanged.

`
}

func (c *Restore) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("command takes one (input backup file) argument")
	}

	fp, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("could not open file %q: %w", args[0], err)
	}
	defer fp.Close()

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return fmt.Errorf("could not get database instance: %w", err)
	}
	defer closer()

	var n int
	restore := func(ctx context.Context, rw kv.ReadWriter) (err error) {
		if err := kvutil.DeleteAll(ctx, rw); err != nil {
			return fmt.Errorf("could not clear the database: %w", err)
		}
		n, err = kvutil.Import(ctx, bufio.NewReader(fp), rw)
		return err
	}
	if err := kv.WithReadWriter(ctx, db, restore); err != nil {
		return fmt.Errorf("could not run restore from backup: %w", err)
	}
	fmt.Fprintf(cli.Stdout(ctx), "Restored %d items from %s\n", n, args[0])
	return nil
}
