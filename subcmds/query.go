// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/bvk/vinbot/config"
	"github.com/bvk/vinbot/inventory"
	"github.com/bvk/vinbot/matcher"
	"github.com/visvasity/cli"
)

type Query struct {
	configFile string
	fromFile   string
	all        bool
	asJSON     bool
}

func (c *Query) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("query", flag.ContinueOnError)
	fset.StringVar(&c.configFile, "config", "", "path to the bot config file (default $HOME/.vinbot/config.json)")
	fset.StringVar(&c.fromFile, "from-file", "", "reads listings from a saved inventory api response instead of the network")
	fset.BoolVar(&c.all, "all", false, "when true, prints all listings, not just the eligible ones")
	fset.BoolVar(&c.asJSON, "json", false, "when true, prints the listings in json format")
	return "query", fset, cli.CmdFunc(c.run)
}

func (c *Query) Purpose() string {
	return "Runs one inventory query and prints the matching vehicles"
}

func (c *Query) Description() string {
	return `

Command "query" performs a single inventory query with the vehicle criteria
from the config file and prints eligible listings in preference order. It is a
dry run: no server is needed and no order is placed. Buyer and payment
sections of the config file are not validated.

`
}

func (c *Query) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	if len(c.configFile) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.configFile = filepath.Join(home, ".vinbot", "config.json")
	}
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := config.Parse(data, filepath.Ext(c.configFile))
	if err != nil {
		return err
	}
	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	criteria := cfg.Criteria()
	if err := criteria.Check(); err != nil {
		return err
	}

	var src inventory.Source
	if len(c.fromFile) != 0 {
		src = &inventory.FileSource{Path: c.fromFile}
	} else {
		client, err := inventory.New(cfg.InventoryOptions())
		if err != nil {
			return err
		}
		src = client
	}

	q := cfg.Query()
	if err := q.Check(); err != nil {
		return err
	}
	listings, err := src.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("could not query the inventory: %w", err)
	}

	stdout := cli.Stdout(ctx)
	if c.all {
		if c.asJSON {
			return json.NewEncoder(stdout).Encode(listings)
		}
		for _, l := range listings {
			fmt.Fprintln(stdout, l)
		}
		return nil
	}

	cands := matcher.Rank(listings, criteria)
	if c.asJSON {
		return json.NewEncoder(stdout).Encode(cands)
	}
	fmt.Fprintf(stdout, "%d listings, %d eligible\n", len(listings), len(cands))
	if len(cands) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "#\tVIN\tTrim\tColor\tInterior\tPrice\tStatus\tLocation\t\n")
	for i, cand := range cands {
		l := cand.Listing
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", i+1, l.VIN, l.Trim, cand.Color, criteria.SeatColor(cand.Color), l.Price.StringFixed(0), l.Availability, l.Location)
	}
	return tw.Flush()
}
