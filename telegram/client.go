// Copyright (c) 2025 BVK Chaitanya

// Package telegram runs a telegram bot that accepts vinbot commands from
// allowed users and delivers run notifications to them.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime/debug"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bvk/vinbot/ctxutil"
	"github.com/bvk/vinbot/gobs"
	"github.com/bvk/vinbot/kvutil"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MaxMessageLen is the telegram limit on the text of one message.
const MaxMessageLen = 4096

type CmdFunc = cli.CmdFunc

type Command struct {
	Purpose string
	Handler CmdFunc
}

// Client is a telegram bot that answers commands from the configured users
// and forwards notifications to them.
type Client struct {
	cg ctxutil.CloseGroup

	db kv.Database

	bot *bot.Bot

	self *models.User

	secrets *Secrets

	mu sync.Mutex

	// state holds the chat ids learned from user messages. Notifications
	// can only reach users who messaged the bot at least once.
	state *gobs.TelegramState

	commandMap map[string]*Command
}

var start = time.Now()

func New(ctx context.Context, db kv.Database, secrets *Secrets) (_ *Client, status error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		db:         db,
		secrets:    secrets.Clone(),
		commandMap: make(map[string]*Command),
	}

	b, err := bot.New(secrets.BotToken, bot.WithDefaultHandler(c.handler))
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	c.bot = b

	self, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch telegram bot user: %w", err)
	}
	c.self = self

	state, err := kvutil.GetDB[gobs.TelegramState](ctx, db, c.stateKey())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		state = &gobs.TelegramState{UserChatIDMap: make(map[string]int64)}
	}
	c.state = state

	builtins := []struct {
		name, purpose string
		handler       CmdFunc
	}{
		{"help", "Lists the supported commands", c.help},
		{"uptime", "Prints vinbot uptime", c.uptime},
		{"version", "Prints version information", c.version},
	}
	for _, v := range builtins {
		c.commandMap[v.name] = &Command{Purpose: v.purpose, Handler: v.handler}
	}
	if err := c.publishCommands(ctx); err != nil {
		return nil, err
	}

	c.cg.Go(c.bot.Start)
	return c, nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) BotUserName() string {
	return c.self.Username
}

func (c *Client) OwnerUserName() string {
	return c.secrets.OwnerID
}

func (c *Client) stateKey() string {
	return path.Join("/telegram", c.self.Username, "state")
}

// AddCommand registers a new command and updates the command menu shown by
// the telegram apps.
func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler CmdFunc) error {
	if len(name) == 0 || len(purpose) == 0 || handler == nil {
		return fmt.Errorf("command name, purpose and handler are required: %w", os.ErrInvalid)
	}

	c.mu.Lock()
	if _, ok := c.commandMap[name]; ok {
		c.mu.Unlock()
		return fmt.Errorf("command %q is already registered: %w", name, os.ErrExist)
	}
	c.commandMap[name] = &Command{Purpose: purpose, Handler: handler}
	c.mu.Unlock()

	return c.publishCommands(ctx)
}

func (c *Client) publishCommands(ctx context.Context) error {
	params := &bot.SetMyCommandsParams{Commands: c.commands()}
	if ok, err := c.bot.SetMyCommands(ctx, params); err != nil {
		return fmt.Errorf("could not set bot commands: %w", err)
	} else if !ok {
		return fmt.Errorf("could not set bot commands")
	}
	return nil
}

func (c *Client) commands() []models.BotCommand {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cmds []models.BotCommand
	for name, cmd := range c.commandMap {
		cmds = append(cmds, models.BotCommand{Command: name, Description: cmd.Purpose})
	}
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Command < cmds[j].Command
	})
	return cmds
}

func (c *Client) lookup(name string) (CmdFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd, ok := c.commandMap[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q (try /help): %w", name, os.ErrNotExist)
	}
	return cmd.Handler, nil
}

// SendMessage sends the text to every allowed user with a known chat id.
// Long texts are split into multiple messages. Delivery failures are logged
// and ignored.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text
	slog.Info("sending telegram notification", "at", at, "message", text)

	c.mu.Lock()
	chatIDs := make(map[string]int64)
	for _, user := range c.secrets.Users() {
		if cid, ok := c.state.UserChatIDMap[user]; ok {
			chatIDs[user] = cid
		}
	}
	c.mu.Unlock()

	for _, user := range c.secrets.Users() {
		cid, ok := chatIDs[user]
		if !ok {
			slog.Warn("could not notify user without a chat id", "user", user)
			continue
		}
		for _, part := range splitMessage(msg, MaxMessageLen) {
			if _, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: cid, Text: part}); err != nil {
				slog.Error("could not notify user (ignored)", "user", user, "err", err)
				break
			}
		}
	}
	return nil
}

// splitMessage breaks text into parts of at most max bytes, preferring line
// boundaries.
func splitMessage(text string, max int) []string {
	var parts []string
	for len(text) > max {
		i := strings.LastIndexByte(text[:max], '\n')
		if i <= 0 {
			i = max
		}
		parts = append(parts, text[:i])
		text = strings.TrimPrefix(text[i:], "\n")
	}
	if len(text) != 0 || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

func (c *Client) help(ctx context.Context, _ []string) error {
	stdout := cli.Stdout(ctx)
	for _, cmd := range c.commands() {
		fmt.Fprintf(stdout, "/%s - %s\n", cmd.Command, cmd.Description)
	}
	return nil
}

func (c *Client) uptime(ctx context.Context, _ []string) error {
	fmt.Fprint(cli.Stdout(ctx), FormatUptime(time.Since(start)))
	return nil
}

// FormatUptime prints durations longer than a day with a day count prefix.
func FormatUptime(d time.Duration) string {
	const day = 24 * time.Hour
	d = d.Round(time.Second)
	if d < day {
		return d.String()
	}
	return fmt.Sprintf("%dd%v", d/day, d%day)
}

func (c *Client) version(ctx context.Context, _ []string) error {
	stdout := cli.Stdout(ctx)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Errorf("could not read build information")
	}
	// Dependency versions can overflow the message size limits.
	fmt.Fprintln(stdout, "Go:", info.GoVersion)
	fmt.Fprintln(stdout, "Module:", info.Main.Path, info.Main.Version)
	for _, s := range info.Settings {
		if slices.Contains([]string{"vcs.revision", "vcs.time", "vcs.modified"}, s.Key) {
			fmt.Fprintf(stdout, "%s: %s\n", s.Key, s.Value)
		}
	}
	return nil
}
