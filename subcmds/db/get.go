// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/bvk/vinbot/gobs"
	"github.com/bvk/vinbot/kvutil"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"
)

type Get struct {
	cmdutil.DBFlags

	valueType string
}

func (c *Get) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := new(flag.FlagSet)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.valueType, "value-type", "RunRecord", "gob type name for the value")
	return "get", fset, cli.CmdFunc(c.run)
}

func (c *Get) Purpose() string {
	return "Prints the value of a key in the database as json"
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (key) argument")
	}
	if _, err := gobs.NewByTypename(c.valueType); err != nil {
		return err
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	get := func(ctx context.Context, r kv.Reader) error {
		value, _ := gobs.NewByTypename(c.valueType)
		if err := kvutil.GetInto(ctx, r, args[0], value); err != nil {
			return err
		}
		js, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.Stdout(ctx), "%s\n", js)
		return nil
	}
	return kv.WithReader(ctx, db, get)
}
