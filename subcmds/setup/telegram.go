// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bvk/vinbot/ctxutil"
	"github.com/bvk/vinbot/server"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/bvk/vinbot/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Telegram struct {
	dataDir     string
	skipTesting bool

	ownerID  string
	adminID  string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Setup configures Telegram service API parameters"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram user id")
	fset.StringVar(&c.adminID, "admin-id", "", "Administrator's telegram user id")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" helps users receive run notifications and control the
bot (/status, /start, /stop, /confirm) through a Telegram bot.

Telegram configuration is optional. It can be configured as follows:

  $ vinbot setup telegram --owner-id=username --bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
	dataDir, err := cmdutil.DataDir(c.dataDir)
	if err != nil {
		return err
	}

	secretsPath := filepath.Join(dataDir, "secrets.json")
	secrets, err := server.SecretsFromFile(secretsPath)
	if err != nil {
		return err
	}

	secrets.Telegram = &telegram.Secrets{
		OwnerID:  c.ownerID,
		AdminID:  c.adminID,
		BotToken: c.botToken,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		if err := waitKeyPress(ctx, "Start a chat with the telegram bot and then press any key"); err != nil {
			return err
		}

		client, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram)
		if err != nil {
			return err
		}
		defer client.Close()

		ctxutil.Sleep(ctx, time.Second)
		if err := client.SendMessage(ctx, time.Now(), "Test message from vinbot Telegram setup; please ignore."); err != nil {
			return fmt.Errorf("could not send test message: %w", err)
		}
	}
	return secrets.Save(secretsPath)
}

func waitKeyPress(ctx context.Context, msg string) error {
	fmt.Fprintln(cli.Stdout(ctx), msg)

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("could not switch terminal to raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	b := make([]byte, 1)
	if _, err := os.Stdin.Read(b); err != nil {
		return err
	}
	return nil
}
