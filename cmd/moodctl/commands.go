package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sakif/moodmap/internal/client"
	"github.com/sakif/moodmap/internal/model"
)

var emoji = map[model.Mood]string{
	model.MoodHappy:   "😊",
	model.MoodSad:     "😢",
	model.MoodAngry:   "😡",
	model.MoodExcited: "🤩",
	model.MoodNeutral: "😐",
}

type cli struct {
	api    *client.Client
	tokens tokenStore
	stdout io.Writer
	stderr io.Writer
}

func newCLI(serverURL string, tokens tokenStore, stdout, stderr io.Writer) *cli {
	return &cli{
		api:    client.New(serverURL),
		tokens: tokens,
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("moodctl "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := c.flags("register")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (6+ characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := c.api.Register(ctx, *username, *email, *password)
	if err != nil {
		return describe(err)
	}
	return c.signedIn(res)
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := c.api.Login(ctx, *email, *password)
	if err != nil {
		return describe(err)
	}
	return c.signedIn(res)
}

func (c *cli) signedIn(res *client.AuthResult) error {
	if err := c.tokens.Save(res.Token); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Signed in as %s (%s)\n", res.User.Username, res.User.Email)
	return nil
}

// session loads the saved token and refreshes it against the server.
func (c *cli) session(ctx context.Context) (*client.Session, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errors.New("not signed in; run `moodctl login` first")
	}

	s := client.NewSession(c.api, token)
	if err := s.Refresh(ctx); err != nil {
		if client.IsUnauthorized(err) {
			_ = c.tokens.Clear()
			return nil, errors.New("session expired; run `moodctl login` again")
		}
		return nil, describe(err)
	}
	return s, nil
}

func (c *cli) me(ctx context.Context) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}

	u := s.User()
	status := "not submitted yet"
	if u.HasMoodSubmitted {
		status = "submitted"
	}
	fmt.Fprintf(c.stdout, "%s <%s>\nmood: %s\n", u.Username, u.Email, status)
	return nil
}

func (c *cli) submit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: moodctl submit DISTRICT MOOD (moods: %v)", model.Moods)
	}
	district, mood := model.District(args[0]), model.Mood(args[1])

	s, err := c.session(ctx)
	if err != nil {
		return err
	}

	sub, err := s.Submit(ctx, district, mood)
	switch {
	case errors.Is(err, client.ErrAlreadySubmitted):
		return errors.New("you have already submitted your mood; each user can only submit once")
	case err != nil:
		return describe(err)
	}

	fmt.Fprintf(c.stdout, "Mood submitted: %s %s in %s\n", emoji[sub.Mood], sub.Mood, sub.District)
	return c.render(s.Board())
}

func (c *cli) moods(ctx context.Context) error {
	rollup, err := c.api.Moods(ctx)
	if err != nil {
		return describe(err)
	}
	return c.render(client.NewBoard(rollup))
}

// watch redraws the board on every poll until interrupted or signed out.
func (c *cli) watch(ctx context.Context, args []string) error {
	fs := c.flags("watch")
	interval := fs.Duration("interval", client.DefaultPollInterval, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := c.session(ctx)
	if err != nil {
		return err
	}

	err = s.Poll(ctx, *interval, func(b client.Board, err error) {
		if err != nil {
			fmt.Fprintln(c.stderr, "refresh failed:", describe(err))
			return
		}
		fmt.Fprintf(c.stdout, "\n%s\n", time.Now().Format("15:04:05"))
		_ = c.render(b)
	})
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case client.IsUnauthorized(err):
		_ = c.tokens.Clear()
		return errors.New("session expired; run `moodctl login` again")
	}
	return err
}

func (c *cli) logout(ctx context.Context) error {
	token, err := c.tokens.Load()
	if err != nil {
		return err
	}
	if token != "" {
		// Best effort: the server only clears its cookie.
		_ = c.api.Logout(ctx, token)
	}
	if err := c.tokens.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Logged out")
	return nil
}

func (c *cli) render(b client.Board) error {
	tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTRICT\tMOOD\tCOUNT")
	for _, t := range b.Tiles {
		if !t.HasMood() {
			fmt.Fprintf(tw, "%s\t-\t0\n", t.District)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%d\n", t.District, emoji[t.Mood], t.Mood, t.Count)
	}
	fmt.Fprintf(tw, "\n%d of %d districts reporting (last 24h)\n", b.Active(), len(b.Tiles))
	return tw.Flush()
}

// describe turns server errors into the server's own message.
func describe(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return errors.New(apiErr.Message)
	}
	return err
}
