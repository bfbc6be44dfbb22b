package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Usage lists the client commands.
const Usage = `Commands:
  register [userName]          create an account
  login [userName]             log in and store the session token
  logout                       forget the stored session
  favourites list              show favourites
  favourites add <id>          add an item to favourites
  favourites remove <id>       remove an item from favourites
  history list|add|remove      same operations on the history`

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("invalid command")

// CLI dispatches client commands.
type CLI struct {
	API         *API
	Prompt      *Prompter
	Out         io.Writer
	SessionPath string
}

// Run executes the command in args.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("no command given")
	}

	switch args[0] {
	case "help":
		fmt.Fprintln(c.Out, Usage)
		return nil
	case "register":
		return c.register(ctx, args[1:])
	case "login":
		return c.login(ctx, args[1:])
	case "logout":
		if err := ClearSession(c.SessionPath); err != nil {
			return err
		}
		fmt.Fprintln(c.Out, "Logged out")
		return nil
	case "favourites", "history":
		return c.collection(ctx, args[0], args[1:])
	default:
		return usageError("unknown command " + args[0])
	}
}

func (c *CLI) register(ctx context.Context, args []string) error {
	userName, err := c.userName(args)
	if err != nil {
		return err
	}
	password, err := c.Prompt.Password("Password")
	if err != nil {
		return err
	}
	confirm, err := c.Prompt.Password("Repeat password")
	if err != nil {
		return err
	}

	msg, err := c.API.Register(ctx, userName, password, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, msg)
	return nil
}

func (c *CLI) login(ctx context.Context, args []string) error {
	userName, err := c.userName(args)
	if err != nil {
		return err
	}
	password, err := c.Prompt.Password("Password")
	if err != nil {
		return err
	}

	token, err := c.API.Login(ctx, userName, password)
	if err != nil {
		return err
	}
	if err := (&Session{UserName: userName, Token: token}).Save(c.SessionPath); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Logged in as %s\n", userName)
	return nil
}

func (c *CLI) collection(ctx context.Context, name string, args []string) error {
	if len(args) == 0 {
		return usageError(name + " needs list, add or remove")
	}
	session, err := LoadSession(c.SessionPath)
	if err != nil {
		return err
	}

	var items []string
	switch args[0] {
	case "list":
		items, err = c.API.List(ctx, session.Token, name)
	case "add", "remove":
		if len(args) != 2 || args[1] == "" {
			return usageError(name + " " + args[0] + " needs an item id")
		}
		if args[0] == "add" {
			items, err = c.API.Add(ctx, session.Token, name, args[1])
		} else {
			items, err = c.API.Remove(ctx, session.Token, name, args[1])
		}
	default:
		return usageError("unknown " + name + " operation " + args[0])
	}
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintf(c.Out, "%s is empty\n", name)
		return nil
	}
	fmt.Fprintf(c.Out, "%s (%d):\n  %s\n", name, len(items), strings.Join(items, "\n  "))
	return nil
}

func (c *CLI) userName(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	name, err := c.Prompt.Line("User name")
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", usageError("user name is required")
	}
	return name, nil
}

func usageError(msg string) error {
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}
