// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/vinbot/config"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Payment struct {
	envFile string
}

func (c *Payment) Purpose() string {
	return "Setup saves buyer and payment card details in the env file"
}

func (c *Payment) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("payment", flag.ContinueOnError)
	fset.StringVar(&c.envFile, "env-file", "", "path to the env file (default $HOME/.vinbot.env)")
	return "payment", fset, cli.CmdFunc(c.run)
}

func (c *Payment) Description() string {
	return `

Command "payment" prompts for the buyer identity and payment card details and
saves them in the env file so that they never appear in the config file or in
the api requests. Card number and CVV are read without echo.

Saved values are loaded by "vinbot run" as VINBOT_ prefixed environment
variables and override the config file fields.

`
}

func (c *Payment) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("standard input must be a terminal")
	}

	if len(c.envFile) == 0 {
		v, err := config.EnvFilePath()
		if err != nil {
			return err
		}
		c.envFile = v
	}

	stdout := cli.Stdout(ctx)
	p := &prompter{w: stdout, r: bufio.NewReader(os.Stdin), fd: fd}

	cfg := new(config.Config)
	cfg.Buyer.FirstName = p.line("First name")
	cfg.Buyer.LastName = p.line("Last name")
	cfg.Buyer.Email = p.line("Email")
	cfg.Buyer.Phone = config.NormalizePhone(p.line("Phone"))
	if p.err != nil {
		return p.err
	}
	if err := cfg.CheckBuyer(); err != nil {
		return err
	}

	cfg.Payment.Holder = p.line("Card holder name")
	cfg.Payment.Number = strings.ReplaceAll(p.secret("Card number"), " ", "")
	cfg.Payment.ExpiryMonth = p.number("Expiry month (1-12)")
	cfg.Payment.ExpiryYear = p.number("Expiry year (YYYY)")
	cfg.Payment.CVV = p.secret("CVV")
	cfg.Payment.BillingZip = p.line("Billing zip")
	cfg.Vehicle.DeliveryZip = p.line("Delivery zip (empty to keep the config value)")
	if p.err != nil {
		return p.err
	}
	if err := cfg.CheckPayment(time.Now()); err != nil {
		return err
	}

	if err := cfg.SaveEnvFile(c.envFile); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved card %s in %s\n", cfg.Payment, c.envFile)
	return nil
}

// prompter reads answers from the terminal. First error is sticky and
// returned through the err field.
type prompter struct {
	w   io.Writer
	r   *bufio.Reader
	fd  int
	err error
}

func (p *prompter) line(prompt string) string {
	if p.err != nil {
		return ""
	}
	fmt.Fprintf(p.w, "%s: ", prompt)
	s, err := p.r.ReadString('\n')
	if err != nil {
		p.err = fmt.Errorf("could not read %s: %w", strings.ToLower(prompt), err)
		return ""
	}
	return strings.TrimSpace(s)
}

func (p *prompter) secret(prompt string) string {
	if p.err != nil {
		return ""
	}
	fmt.Fprintf(p.w, "%s: ", prompt)
	data, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.w)
	if err != nil {
		p.err = fmt.Errorf("could not read %s: %w", strings.ToLower(prompt), err)
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (p *prompter) number(prompt string) int {
	s := p.line(prompt)
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("%s must be a number", strings.ToLower(prompt))
		return 0
	}
	return v
}
