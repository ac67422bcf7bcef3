package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/booking"
	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/session"
	"github.com/spec-kit/space-booking/internal/view"
	"github.com/spec-kit/space-booking/internal/worker"
)

// ErrNotCreated is returned by reserve when the gateway did not create the reservation.
var ErrNotCreated = errors.New("reservation not created")

func (a *App) login(ctx context.Context, args []string) error {
	identifier := ""
	if len(args) > 0 {
		identifier = args[0]
	}
	if identifier == "" {
		var err error
		if identifier, err = prompt(a.in, a.out, "Username or email"); err != nil {
			return err
		}
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	res, err := a.portal.Login(ctx, identifier, password)
	if err != nil {
		return err
	}
	sess := a.store.Login(ctx, res.Token)
	if !sess.LoggedIn {
		return errors.New("login succeeded but the credential could not be read")
	}
	a.printf("Logged in as %s (%s)\n", sess.Claims.Subject, sess.Role())
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	username := fs.String("username", "", "account name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var err error
	if *username == "" {
		if *username, err = prompt(a.in, a.out, "Username"); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = prompt(a.in, a.out, "Email"); err != nil {
			return err
		}
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.portal.Register(ctx, domain.RegisterRequest{Username: *username, Email: *email, Password: password}); err != nil {
		return err
	}
	a.printf("Account %s created, you can log in now\n", *username)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	if err := a.portal.Logout(ctx); err != nil {
		a.logger.Warn("gateway logout failed, clearing local session anyway", zap.Error(err))
	}
	a.store.Logout(ctx)
	a.printf("Logged out\n")
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	sess := a.store.Current(ctx)
	if !sess.LoggedIn {
		a.printf("Not logged in\n")
		return nil
	}
	a.printf("%s (%s)", sess.Claims.Subject, sess.Role())
	if exp := sess.Claims.ExpiresAt; exp != nil {
		a.printf(", expires %s", exp.Local().Format(time.RFC1123))
	}
	a.printf("\n")
	return nil
}

func (a *App) menu(ctx context.Context, _ []string) error {
	m := view.Compose(a.store.Current(ctx))
	if m.Username != "" {
		a.printf("%s menu for %s\n", m.Audience, m.Username)
	} else {
		a.printf("%s menu\n", m.Audience)
	}
	for _, it := range m.Items {
		a.printf("  %-16s %s\n", it.Label, it.Path)
	}

	var actions []string
	if m.CanReserve {
		actions = append(actions, "reserve")
	}
	if m.CanManageSpaces {
		actions = append(actions, "manage spaces")
	}
	if m.CanManageReservations {
		actions = append(actions, "manage reservations")
	}
	if m.CanManageUsers {
		actions = append(actions, "manage users")
	}
	if len(actions) > 0 {
		a.printf("Actions: %s\n", strings.Join(actions, ", "))
	}
	return nil
}

func (a *App) spaces(ctx context.Context, args []string) error {
	fs := newFlagSet("spaces")
	rawType := fs.String("type", "", "ROOM or TABLE")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var (
		list []domain.Space
		err  error
	)
	if *rawType == "" {
		list, err = a.portal.Spaces(ctx)
	} else {
		spaceType, ok := domain.ParseSpaceType(*rawType)
		if !ok {
			return fmt.Errorf("%w: type must be ROOM or TABLE", ErrUsage)
		}
		list, err = a.portal.SpacesByType(ctx, spaceType)
	}
	if err != nil {
		return err
	}
	printSpaces(a.out, list)
	return nil
}

func (a *App) space(ctx context.Context, args []string) error {
	id, err := idArg(args, "space <id>")
	if err != nil {
		return err
	}
	s, err := a.portal.Space(ctx, id)
	if err != nil {
		return err
	}
	printSpaces(a.out, []domain.Space{s})
	return nil
}

func (a *App) reserve(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: reserve <spaceId> <YYYY-MM-DD> <MORNING|AFTERNOON|FULL_DAY>", ErrUsage)
	}
	spaceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: space id must be a number", ErrUsage)
	}
	slot, ok := domain.ParseTimeSlot(args[2])
	if !ok {
		return fmt.Errorf("%w: time slot must be MORNING, AFTERNOON or FULL_DAY", ErrUsage)
	}

	m := view.Compose(a.store.Current(ctx))
	switch {
	case m.Audience == view.AudienceAnonymous:
		return booking.ErrLoginRequired
	case !m.CanReserve:
		return errors.New("administrators cannot make reservations")
	}

	form := booking.NewForm(booking.NewWorkflow(a.portal, a.logger), a.store)
	defer form.Close()

	out, err := form.Submit(ctx, booking.Intent{SpaceID: spaceID, Date: args[1], TimeSlot: slot})
	if err != nil {
		return err
	}
	a.printf("%s: %s\n", out.Title(), out.Message)
	if out.Kind != booking.KindCreated {
		return ErrNotCreated
	}
	if out.Refresh {
		return a.myReservations(ctx, nil)
	}
	return nil
}

func (a *App) reservations(ctx context.Context, args []string) error {
	status, err := statusFlag("reservations", args)
	if err != nil {
		return err
	}
	list, err := a.portal.Reservations(ctx)
	if err != nil {
		return err
	}
	printReservations(a.out, domain.FilterReservations(list, status), true)
	return nil
}

func (a *App) myReservations(ctx context.Context, args []string) error {
	status, err := statusFlag("my-reservations", args)
	if err != nil {
		return err
	}
	list, err := a.portal.MyReservations(ctx)
	if err != nil {
		return err
	}
	printReservations(a.out, domain.FilterReservations(list, status), false)
	return nil
}

func (a *App) cancel(ctx context.Context, args []string) error {
	id, err := idArg(args, "cancel <reservationId>")
	if err != nil {
		return err
	}
	if err := a.portal.DeleteReservation(ctx, id); err != nil {
		return err
	}
	a.printf("Reservation %d cancelled\n", id)
	return nil
}

func (a *App) users(ctx context.Context, _ []string) error {
	list, err := a.portal.Users(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role)
	}
	return tw.Flush()
}

// watch prints every session change until ctx ends, including changes made
// by other spacectl processes sharing the slot.
func (a *App) watch(ctx context.Context, _ []string) error {
	return worker.NewSessionWatcher(a.store, a.logger).Run(ctx, func(s session.Session) {
		m := view.Compose(s)
		if !s.LoggedIn {
			a.printf("[%s] logged out\n", time.Now().Format(time.TimeOnly))
			return
		}
		a.printf("[%s] logged in as %s (%s menu)\n", time.Now().Format(time.TimeOnly), s.Claims.Subject, m.Audience)
	})
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func statusFlag(name string, args []string) (domain.ReservationStatus, error) {
	fs := newFlagSet(name)
	raw := fs.String("status", "", "ACTIVE, COMPLETED or CANCELLED")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *raw == "" {
		return "", nil
	}
	status, ok := domain.ParseReservationStatus(*raw)
	if !ok {
		return "", fmt.Errorf("%w: status must be ACTIVE, COMPLETED or CANCELLED", ErrUsage)
	}
	return status, nil
}

func idArg(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	return id, nil
}

func printSpaces(w io.Writer, list []domain.Space) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCAPACITY")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", s.ID, s.Name, s.Type, s.Capacity)
	}
	_ = tw.Flush()
}

func printReservations(w io.Writer, list []domain.Reservation, withUser bool) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No reservations")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "ID\tSPACE\tDATE\tSLOT\tSTATUS"
	if withUser {
		header += "\tUSER"
	}
	fmt.Fprintln(tw, header)
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s", r.ID, r.SpaceName, r.ReservationDate, r.TimeSlot, r.Status)
		if withUser {
			fmt.Fprintf(tw, "\t%s", r.Username)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}
