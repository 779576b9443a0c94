// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/bvk/vinbot/gobs"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"
)

type List struct {
	cmdutil.DBFlags

	keyRe string

	valueType string

	printTemplate string
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := new(flag.FlagSet)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.keyRe, "key-regexp", "", "regular expression to pick keys")
	fset.StringVar(&c.valueType, "value-type", "", "gob type name for the values")
	fset.StringVar(&c.printTemplate, "print-template", "", "text/template to print the value")
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) Purpose() string {
	return "Prints keys and values in the database"
}

func (c *List) Description() string {
	return `

Command "list" prints all keys in the database. When a value type is given
(ex: RunRecord), values of the keys matching the key regexp are decoded and
printed as json or with the print template.

  $ vinbot db list -key-regexp='^/runs/' -value-type=RunRecord \
      -print-template='{{.Outcome}} {{.Attempts}}'

`
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	var keyRe *regexp.Regexp
	if len(c.keyRe) != 0 {
		re, err := regexp.Compile(c.keyRe)
		if err != nil {
			return fmt.Errorf("could not compile key-regexp value: %w", err)
		}
		keyRe = re
	}

	if len(c.valueType) != 0 {
		if _, err := gobs.NewByTypename(c.valueType); err != nil {
			return fmt.Errorf("invalid value-type %q: %w", c.valueType, err)
		}
	}

	var tmpl *template.Template
	if len(c.printTemplate) > 0 {
		t, err := template.New("print").Parse(c.printTemplate)
		if err != nil {
			return fmt.Errorf("could not parse print-template: %w", err)
		}
		tmpl = t
	}

	stdout := cli.Stdout(ctx)
	list := func(ctx context.Context, r kv.Reader) error {
		it, err := r.Scan(ctx)
		if err != nil {
			return err
		}
		defer kv.Close(it)

		for k, v, err := it.Fetch(ctx, false); err == nil; k, v, err = it.Fetch(ctx, true) {
			if keyRe != nil && !keyRe.MatchString(k) {
				continue
			}
			if len(c.valueType) == 0 {
				fmt.Fprintln(stdout, k)
				continue
			}

			value, _ := gobs.NewByTypename(c.valueType)
			if err := gob.NewDecoder(v).Decode(value); err != nil {
				return fmt.Errorf("could not gob-decode value for key %q: %w", k, err)
			}

			if tmpl == nil {
				data, _ := json.Marshal(value)
				fmt.Fprintf(stdout, "%s %s\n", k, data)
				continue
			}

			var sb strings.Builder
			if err := tmpl.Execute(&sb, value); err != nil {
				return fmt.Errorf("could not execute print template against value at key %q: %w", k, err)
			}
			fmt.Fprintf(stdout, "%s %s\n", k, sb.String())
		}

		if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	return kv.WithReader(ctx, db, list)
}
