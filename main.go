// Copyright (c) 2023 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/vinbot/subcmds"
	"github.com/bvk/vinbot/subcmds/db"
	"github.com/bvk/vinbot/subcmds/setup"
	"github.com/visvasity/cli"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.List),
		new(db.Delete),
		new(db.Backup),
		new(db.Restore),
	}

	setupCmds := []cli.Command{
		new(setup.Payment),
		new(setup.Telegram),
		new(setup.PushOver),
		new(setup.Vehicle),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Start),
		new(subcmds.Stop),
		new(subcmds.Status),
		new(subcmds.Confirm),
		new(subcmds.History),
		new(subcmds.Events),
		new(subcmds.Query),
		cli.CommandGroup("setup", "Configure vehicle preferences, payment details and notifications", setupCmds...),
		cli.CommandGroup("db", "View/update database directly", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
