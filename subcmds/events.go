// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/events"
	"github.com/bvk/vinbot/subcmds/cmdutil"
	"github.com/gorilla/websocket"
	"github.com/visvasity/cli"
)

type Events struct {
	cmdutil.ClientFlags

	recent   bool
	untilEnd bool
}

func (c *Events) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("events", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.recent, "recent", true, "when true, prints recent events before the live events")
	fset.BoolVar(&c.untilEnd, "until-finished", false, "when true, exits after a run finishes")
	return "events", fset, cli.CmdFunc(c.run)
}

func (c *Events) Purpose() string {
	return "Prints run events from the server as they happen"
}

func (c *Events) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	u := c.ClientFlags.WebsocketURL(api.BotEventsPath)
	if c.recent {
		u.RawQuery = "recent=1"
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return fmt.Errorf("could not open event stream (http status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("could not open event stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	stdout := cli.Stdout(ctx)
	for {
		e := new(events.Event)
		if err := conn.ReadJSON(e); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			var cerr *websocket.CloseError
			if errors.As(err, &cerr) {
				return fmt.Errorf("event stream is closed by the server: %w", err)
			}
			return err
		}
		fmt.Fprintln(stdout, e)
		if c.untilEnd && (e.Kind == events.RunFinished || e.Kind == events.RunFailed) {
			return nil
		}
	}
}
