// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"
)

type Delete struct {
	cmdutil.DBFlags
}

func (c *Delete) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := new(flag.FlagSet)
	c.DBFlags.SetFlags(fset)
	return "delete", fset, cli.CmdFunc(c.run)
}

func (c *Delete) Purpose() string {
	return "Deletes one or more keys from the database"
}

func (c *Delete) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("needs at least one (key) argument")
	}
	for _, k := range args {
		if !cmdutil.IsGoodKey(k) {
			return fmt.Errorf("key %q must be an absolute clean path", k)
		}
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	del := func(ctx context.Context, rw kv.ReadWriter) error {
		for _, k := range args {
			if err := rw.Delete(ctx, k); err != nil {
				return fmt.Errorf("could not delete key %q: %w", k, err)
			}
		}
		return nil
	}
	return kv.WithReadWriter(ctx, db, del)
}
