// Package cli implements spacectl, a terminal front end for the booking
// gateway. Each spacectl process is one client context: its session lives in
// the shared credential slot and its cookie jar is rebuilt from it on start.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/portal"
	"github.com/spec-kit/space-booking/internal/session"
)

// ErrUsage is returned for unknown commands and bad arguments.
var ErrUsage = errors.New("usage")

// App holds the dependencies shared by every command.
type App struct {
	portal *portal.Client
	store  *session.Store
	logger *zap.Logger
	in     *bufio.Reader
	out    io.Writer
}

// NewApp wires a CLI around a gateway client and a token store.
func NewApp(client *portal.Client, store *session.Store, logger *zap.Logger, in io.Reader, out io.Writer) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{portal: client, store: store, logger: logger, in: bufio.NewReader(in), out: out}
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":           {"login [identifier]", (*App).login},
	"register":        {"register [-username name] [-email addr]", (*App).register},
	"logout":          {"logout", (*App).logout},
	"whoami":          {"whoami", (*App).whoami},
	"menu":            {"menu", (*App).menu},
	"spaces":          {"spaces [-type ROOM|TABLE]", (*App).spaces},
	"space":           {"space <id>", (*App).space},
	"reserve":         {"reserve <spaceId> <YYYY-MM-DD> <MORNING|AFTERNOON|FULL_DAY>", (*App).reserve},
	"reservations":    {"reservations [-status ACTIVE|COMPLETED|CANCELLED]", (*App).reservations},
	"my-reservations": {"my-reservations [-status ACTIVE|COMPLETED|CANCELLED]", (*App).myReservations},
	"cancel":          {"cancel <reservationId>", (*App).cancel},
	"users":           {"users", (*App).users},
	"watch":           {"watch", (*App).watch},
}

// Run executes one command. The cookie jar is seeded from the current session
// first so requests carry the credential this context last saw.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		a.usage()
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	sess := a.store.Current(ctx)
	a.portal.UseCredential(sess.Credential)

	err := cmd.run(a, ctx, args[1:])
	if portal.StatusOf(err) == http.StatusUnauthorized && sess.LoggedIn {
		a.logger.Debug("gateway rejected stored credential, clearing session")
		a.store.Logout(ctx)
		return fmt.Errorf("session is no longer valid, log in again: %w", err)
	}
	return err
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Usage: spacectl <command> [args]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	fmt.Fprint(a.out, b.String())
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
