// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bvk/vinbot/pushover"
	"github.com/bvk/vinbot/server"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type PushOver struct {
	dataDir     string
	skipTesting bool

	appKey  string
	userKey string
}

func (c *PushOver) Purpose() string {
	return "Setup configures PushOver service API parameters"
}

func (c *PushOver) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pushover", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.userKey, "user-key", "", "PushOver service user key")
	fset.StringVar(&c.appKey, "app-key", "", "PushOver service application key")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "pushover", fset, cli.CmdFunc(c.run)
}

func (c *PushOver) Description() string {
	return `

Command "pushover" helps users configure run notifications through the
Pushover service.

Pushover keys are optional. They are only required to receive notifications to
the mobile phones when a vehicle is found or an order finishes. They can be
configured as follows:

  $ vinbot setup pushover --app-key=awja5ue...ito7svf --user-key=uscjs2...tvp4kv

`
}

func (c *PushOver) run(ctx context.Context, args []string) error {
	dataDir, err := cmdutil.DataDir(c.dataDir)
	if err != nil {
		return err
	}

	secretsPath := filepath.Join(dataDir, "secrets.json")
	secrets, err := server.SecretsFromFile(secretsPath)
	if err != nil {
		return err
	}

	secrets.Pushover = &pushover.Keys{
		ApplicationKey: c.appKey,
		UserKey:        c.userKey,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		// Send a message to validate the keys.
		client, err := pushover.New(secrets.Pushover)
		if err != nil {
			return err
		}
		if err := client.SendMessage(ctx, time.Now(), "Test message from vinbot Pushover setup; please ignore."); err != nil {
			return fmt.Errorf("could not send test message: %w", err)
		}
	}
	return secrets.Save(secretsPath)
}
