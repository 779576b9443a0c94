// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bvk/vinbot/config"
	"github.com/bvk/vinbot/inventory"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Vehicle struct {
	dataDir    string
	configFile string

	edits []func(*config.Config)
}

func (c *Vehicle) Purpose() string {
	return "Setup updates the vehicle preferences in the config file"
}

func (c *Vehicle) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	c.edits = nil
	fset := flag.NewFlagSet("vehicle", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.configFile, "config", "", "config file path (default <data-dir>/config.json)")
	fset.Func("variant", "trim family, e.g. \"Standard Range\"", func(s string) error {
		c.edit(func(cfg *config.Config) { cfg.Vehicle.Variant = strings.TrimSpace(s) })
		return nil
	})
	fset.Func("max-price", "inclusive price ceiling", func(s string) error {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		c.edit(func(cfg *config.Config) { cfg.Vehicle.MaxPrice = v })
		return nil
	})
	fset.Func("colors", "comma separated colors in preference order", func(s string) error {
		var colors []string
		for _, f := range strings.Split(s, ",") {
			color, err := inventory.ParseColor(f)
			if err != nil {
				return err
			}
			colors = append(colors, string(color))
		}
		c.edit(func(cfg *config.Config) { cfg.Vehicle.Colors = colors })
		return nil
	})
	fset.Func("seat-color-rule", "derive the interior color from the exterior color", func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		c.edit(func(cfg *config.Config) { cfg.Vehicle.SeatColorRule = &v })
		return nil
	})
	fset.Func("delivery-zip", "delivery zip code", func(s string) error {
		c.edit(func(cfg *config.Config) { cfg.Vehicle.DeliveryZip = s })
		return nil
	})
	fset.Func("sale-start", "HH:MM local time to start polling; empty disables the wait", func(s string) error {
		c.edit(func(cfg *config.Config) { cfg.Bot.SaleStart = s })
		return nil
	})
	return "vehicle", fset, cli.CmdFunc(c.run)
}

func (c *Vehicle) Description() string {
	return `

Command "vehicle" creates or updates the vehicle preferences and the sale start
time in the config file. Only the fields named on the command line are
changed; buyer and payment fields in the file are left as they are.

  $ vinbot setup vehicle -max-price=2000000 -colors=red,white -delivery-zip=34000 -sale-start=17:59

`
}

func (c *Vehicle) edit(f func(*config.Config)) {
	c.edits = append(c.edits, f)
}

func (c *Vehicle) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	fpath := c.configFile
	if len(fpath) == 0 {
		dataDir, err := cmdutil.DataDir(c.dataDir)
		if err != nil {
			return err
		}
		fpath = filepath.Join(dataDir, "config.json")
	}

	cfg, err := c.update(fpath)
	if err != nil {
		return err
	}

	v := &cfg.Vehicle
	fmt.Fprintf(cli.Stdout(ctx), "Saved %s: variant %q, max price %s, colors %s, delivery zip %s\n",
		fpath, v.Variant, v.MaxPrice.StringFixed(0), strings.Join(v.Colors, ","), v.DeliveryZip)
	return nil
}

// update applies the edits to the config file, creating it when missing.
func (c *Vehicle) update(fpath string) (*config.Config, error) {
	if len(c.edits) == 0 {
		return nil, fmt.Errorf("no vehicle fields are given: %w", os.ErrInvalid)
	}

	data, err := os.ReadFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		data = []byte("{}")
	}
	cfg, err := config.Parse(data, filepath.Ext(fpath))
	if err != nil {
		return nil, err
	}
	for _, edit := range c.edits {
		edit(cfg)
	}
	if err := cfg.CheckVehicle(); err != nil {
		return nil, err
	}
	if err := cfg.CheckBot(); err != nil {
		return nil, err
	}
	if err := cfg.Save(fpath); err != nil {
		return nil, err
	}
	return cfg, nil
}
