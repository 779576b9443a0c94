// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/bvk/vinbot/kvutil"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

// parseCommand splits a bot command message into the command name and its
// arguments. The command must be the first entity in the message.
func parseCommand(msg *models.Message) (string, []string, error) {
	if msg == nil || len(msg.Entities) == 0 {
		return "", nil, os.ErrInvalid
	}
	entity := msg.Entities[0]
	if entity.Type != models.MessageEntityTypeBotCommand || entity.Offset != 0 {
		return "", nil, os.ErrInvalid
	}
	if len(msg.Text) < entity.Length || !strings.HasPrefix(msg.Text, "/") {
		return "", nil, os.ErrInvalid
	}
	name := msg.Text[1:entity.Length]
	// Commands in group chats are addressed as /cmd@botname.
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name, strings.Fields(msg.Text[entity.Length:]), nil
}

func (c *Client) handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if b != c.bot {
		slog.Error("handler invoked with invalid bot value", "want", c.bot, "got", b)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	sender := msg.From.Username
	if !c.secrets.IsValidUser(sender) {
		slog.Warn("received message from unknown user (ignored)", "sender", sender)
		return
	}

	if err := c.saveChatID(ctx, sender, msg.Chat.ID); err != nil {
		slog.Warn("could not save chat id (ignored)", "user", sender, "err", err)
	}

	reply := c.run(ctx, msg)
	if err := c.reply(ctx, msg, reply); err != nil {
		slog.Error("could not reply to user command (ignored)", "user", sender, "err", err)
	}
}

// run executes the command in msg and returns the text to reply with.
// Command errors are replied as text.
func (c *Client) run(ctx context.Context, msg *models.Message) string {
	name, args, err := parseCommand(msg)
	if err != nil {
		return "Messages must start with a command; try /help"
	}
	handler, err := c.lookup(name)
	if err != nil {
		return err.Error()
	}

	var sb strings.Builder
	if err := handler(cli.WithStdout(ctx, &sb), args); err != nil {
		slog.Error("could not handle user command", "cmd", name, "user", msg.From.Username, "err", err)
		return err.Error()
	}
	if sb.Len() == 0 {
		return "OK"
	}
	return sb.String()
}

func (c *Client) reply(ctx context.Context, msg *models.Message, text string) error {
	disabled := true
	for i, part := range splitMessage(text, MaxMessageLen) {
		p := &bot.SendMessageParams{
			ChatID:             msg.Chat.ID,
			Text:               part,
			LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
		}
		if i == 0 {
			p.ReplyParameters = &models.ReplyParameters{MessageID: msg.ID}
		}
		if _, err := c.bot.SendMessage(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) saveChatID(ctx context.Context, user string, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.state.UserChatIDMap[user]; ok && id == chatID {
		return nil
	}
	c.state.UserChatIDMap[user] = chatID
	slog.Info("updating chat id for authorized user", "user", user, "chat-id", chatID)
	return kvutil.SetDB(ctx, c.db, c.stateKey(), c.state)
}
