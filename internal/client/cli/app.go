// Package cli implements the feedhub command line client. Each invocation
// runs a single command against the server.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dmitrijs2005/feedhub/internal/client/client"
	"github.com/dmitrijs2005/feedhub/internal/client/config"
	"github.com/dmitrijs2005/feedhub/internal/filex"
)

var ErrUsage = errors.New("usage error")

// getSimpleText, getPassword and getMultiline are swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

type command struct {
	usage string
	help  string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":       {"register", "create an account", (*App).register},
	"login":          {"login", "log in and store the access token", (*App).login},
	"logout":         {"logout", "forget the stored access token", (*App).logout},
	"feed":           {"feed", "show the feed", (*App).feed},
	"posts":          {"posts [user-id]", "list a user's posts", (*App).userPosts},
	"favs":           {"favs [user-id]", "list a user's favorite posts", (*App).favoritePosts},
	"post":           {"post [-title T] [-desc D] [-picture FILE]", "publish a post", (*App).createPost},
	"delete":         {"delete <post-id>", "delete one of your posts", (*App).deletePost},
	"follow":         {"follow <user-id>", "follow a user", (*App).follow},
	"unfollow":       {"unfollow <user-id>", "stop following a user", (*App).unfollow},
	"fav":            {"fav <post-id>", "add a post to favorites", (*App).addFavorite},
	"unfav":          {"unfav <post-id>", "remove a post from favorites", (*App).removeFavorite},
	"follows":        {"follows [user-id]", "list who a user follows", (*App).listFollows},
	"followers":      {"followers [user-id]", "list a user's followers", (*App).listFollowers},
	"profile":        {"profile [user-id]", "show a profile", (*App).profile},
	"update-profile": {"update-profile [-name N] [-email E] [-password]", "edit your profile", (*App).updateProfile},
}

type App struct {
	config *config.Config
	client client.Client
	reader *bufio.Reader
	out    io.Writer
}

// NewApp connects to the configured server and restores the stored token.
func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewFeedHubClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	a := newApp(c, apiClient, os.Stdin, os.Stdout)
	if err := a.restoreToken(); err != nil {
		apiClient.Close()
		return nil, err
	}
	return a, nil
}

func newApp(c *config.Config, cl client.Client, in io.Reader, out io.Writer) *App {
	return &App{config: c, client: cl, reader: bufio.NewReader(in), out: out}
}

func (a *App) restoreToken() error {
	token, err := filex.ReadSecret(a.config.TokenFile)
	if err != nil {
		return err
	}
	a.client.SetToken(token)
	return nil
}

func (a *App) saveToken(token string) error {
	a.client.SetToken(token)
	if token == "" {
		return filex.RemoveSecret(a.config.TokenFile)
	}
	return filex.WriteSecret(a.config.TokenFile, token)
}

// Run executes args[0] with the remaining arguments.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.client.Close()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		a.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.out, "unknown command %q\n", args[0])
		a.usage()
		return ErrUsage
	}

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	err := cmd.run(a, ctx, args[1:])
	switch {
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(a.out, "usage: feedhub %s\n", cmd.usage)
	case errors.Is(err, client.ErrTokenExpired):
		if rmErr := a.saveToken(""); rmErr != nil {
			return errors.Join(err, rmErr)
		}
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("%w: run 'feedhub login' first", err)
	}
	return err
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "usage: feedhub [-a addr] [-t token-file] [-w seconds] <command> [args]")
	fmt.Fprintln(a.out, "commands:")
	w := newTable(a.out)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", commands[name].usage, commands[name].help)
	}
	w.Flush()
}

// optionalArg returns the single optional positional argument.
func optionalArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", ErrUsage
	}
}

func requiredArg(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", ErrUsage
	}
	return args[0], nil
}
