// Command moodctl is a terminal client for the mood map server.
//
//	moodctl [-server URL] [-token-file PATH] <command> [flags]
//
// Commands: register, login, me, submit, moods, watch, logout.
// The token from register/login is kept in the token file (0600) until
// logout; MOODMAP_TOKEN, when set, is used instead of the file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "moodctl:", err)
		}
		os.Exit(1)
	}
}

const usage = `usage: moodctl [-server URL] [-token-file PATH] <command> [flags]

commands:
  register -username NAME -email EMAIL -password PASS
  login    -email EMAIL -password PASS
  me                        show the signed-in user
  submit   DISTRICT MOOD    submit your one mood
  moods                     show the district board
  watch    [-interval 30s]  redraw the board until interrupted
  logout                    forget the saved token

environment:
  MOODMAP_URL, MOODMAP_TOKEN_FILE, MOODMAP_TOKEN
`

// run parses the global flags and dispatches to a command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("moodctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	server := fs.String("server", envOr("MOODMAP_URL", "http://localhost:5000"), "server base URL")
	tokenFile := fs.String("token-file", envOr("MOODMAP_TOKEN_FILE", defaultTokenFile()), "where the session token is kept")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	c := newCLI(*server, tokenStore{path: *tokenFile, env: os.Getenv("MOODMAP_TOKEN")}, stdout, stderr)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register":
		return c.register(ctx, rest)
	case "login":
		return c.login(ctx, rest)
	case "me":
		return c.me(ctx)
	case "submit":
		return c.submit(ctx, rest)
	case "moods":
		return c.moods(ctx)
	case "watch":
		return c.watch(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "help":
		fs.Usage()
		return nil
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
