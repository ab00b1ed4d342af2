package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"patient-management/internal/auth"
	"patient-management/internal/domain/entity"
	"patient-management/internal/domain/repository"
	"patient-management/internal/infrastructure/store"
	"patient-management/internal/roster"
	"patient-management/internal/service"
	"patient-management/internal/session"

	"github.com/spf13/pflag"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errNotLoggedIn = errors.New("not logged in, run 'clinicctl login' first")

const usage = `Usage: clinicctl <command> [flags]

Commands:
  login     authenticate and store the session
  logout    clear the stored session
  whoami    show the current user
  patients  list patients (--search, --status)
  patient   show one patient by id
  export    write the filtered roster to an xlsx file (--out)
  watch     filter the roster interactively from stdin
`

type cli struct {
	manager  *session.Manager
	patients repository.PatientRepository
	debounce time.Duration
	now      func() time.Time

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.errOut, usage)
		return exitUsage
	}

	commands := map[string]func(context.Context, []string) error{
		"login":    c.login,
		"logout":   c.logout,
		"whoami":   c.whoami,
		"patients": c.listPatients,
		"patient":  c.showPatient,
		"export":   c.export,
		"watch":    c.watch,
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(c.errOut, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	err := cmd(ctx, args[1:])
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(c.errOut, err)
		return exitUsage
	case errors.Is(err, store.ErrUnauthorized):
		fmt.Fprintln(c.errOut, "session rejected by the backing store, please login again")
		return exitError
	default:
		fmt.Fprintln(c.errOut, "error:", err)
		return exitError
	}
}

var errUsage = errors.New("usage")

func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func (c *cli) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *cli) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flagSet("login")
	username := fs.StringP("username", "u", "", "account username")
	password := fs.StringP("password", "p", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return usageError("login requires --username and --password")
	}

	user, err := c.manager.Login(ctx, *username, *password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return errors.New("invalid username or password")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Logged in as %s (%s)\n", user.FullName, user.Role)
	return nil
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	if err := c.manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Logged out")
	return nil
}

func (c *cli) whoami(_ context.Context, _ []string) error {
	if !c.manager.IsLoggedIn() {
		return errNotLoggedIn
	}
	user := c.manager.CurrentUser()
	fmt.Fprintf(c.out, "%s\t%s\t%s\n", user.Username, user.FullName, user.Role)
	return nil
}

func (c *cli) requireLogin() error {
	if !c.manager.IsLoggedIn() {
		return errNotLoggedIn
	}
	return nil
}

func (c *cli) filteredRoster(ctx context.Context, args []string, name string, extra func(*pflag.FlagSet)) ([]entity.Patient, error) {
	fs := c.flagSet(name)
	search := fs.StringP("search", "s", "", "match first name, last name or e-mail")
	status := fs.String("status", entity.StatusAll, "patient status or 'all'")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.requireLogin(); err != nil {
		return nil, err
	}

	all, err := c.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	return roster.Filter(all, *search, *status), nil
}

func (c *cli) listPatients(ctx context.Context, args []string) error {
	visible, err := c.filteredRoster(ctx, args, "patients", nil)
	if err != nil {
		return err
	}
	c.printRoster(visible)
	return nil
}

func (c *cli) showPatient(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("patient requires exactly one id")
	}
	if err := c.requireLogin(); err != nil {
		return err
	}

	p, err := c.patients.Get(ctx, entity.PatientID(args[0]))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("patient %s not found", args[0])
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", p.ID)
	fmt.Fprintf(tw, "Name\t%s\n", p.FullName())
	fmt.Fprintf(tw, "Age\t%d\n", p.Age(c.clock(), true))
	fmt.Fprintf(tw, "Gender\t%s\n", p.Gender)
	fmt.Fprintf(tw, "Status\t%s\n", p.StatusLabel())
	fmt.Fprintf(tw, "Email\t%s\n", p.Email)
	fmt.Fprintf(tw, "Phone\t%s\n", p.Phone)
	fmt.Fprintf(tw, "Blood group\t%s\n", p.BloodGroup)
	fmt.Fprintf(tw, "Last visit\t%s\n", p.LastVisit)
	if len(p.Allergies) > 0 {
		fmt.Fprintf(tw, "Allergies\t%s\n", strings.Join(p.Allergies, ", "))
	}
	if p.EmergencyContact != nil {
		fmt.Fprintf(tw, "Emergency contact\t%s (%s) %s\n",
			p.EmergencyContact.Name, p.EmergencyContact.Relationship, p.EmergencyContact.Phone)
	}
	return tw.Flush()
}

func (c *cli) export(ctx context.Context, args []string) error {
	var out string
	visible, err := c.filteredRoster(ctx, args, "export", func(fs *pflag.FlagSet) {
		fs.StringVarP(&out, "out", "o", "patients.xlsx", "output file")
	})
	if err != nil {
		return err
	}

	data, err := service.ExportRoster(visible, c.clock())
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(c.out, "Exported %d patient(s) to %s\n", len(visible), out)
	return nil
}

// watch loads the roster once and reads filter input line by line: "status <value>"
// switches the status filter at once, any other line becomes the debounced search term.
func (c *cli) watch(ctx context.Context, args []string) error {
	fs := c.flagSet("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.requireLogin(); err != nil {
		return err
	}

	all, err := c.patients.List(ctx)
	if err != nil {
		return err
	}

	view := roster.NewView(c.debounce)
	defer view.Close()

	var printMu sync.Mutex
	unsubscribe := view.Subscribe(func(visible []entity.Patient) {
		printMu.Lock()
		defer printMu.Unlock()
		c.printRoster(visible)
	})
	defer unsubscribe()

	// Logging out elsewhere in this process ends the watch.
	loggedOut := make(chan struct{})
	var once sync.Once
	unwatch := c.manager.Subscribe(func(user *entity.User) {
		if user == nil {
			once.Do(func() { close(loggedOut) })
		}
	})
	defer unwatch()

	view.SetRoster(all)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-loggedOut:
			return errNotLoggedIn
		case line, ok := <-lines:
			if !ok {
				view.Flush()
				return nil
			}
			if status, found := strings.CutPrefix(strings.TrimSpace(line), "status "); found {
				view.SetStatus(strings.TrimSpace(status))
				continue
			}
			view.SetTerm(line)
		}
	}
}

func (c *cli) printRoster(patients []entity.Patient) {
	now := c.clock()
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAGE\tSTATUS\tEMAIL")
	for i := range patients {
		p := &patients[i]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.FullName(), p.Age(now, true), p.StatusLabel(), p.Email)
	}
	fmt.Fprintf(tw, "%d patient(s)\n", len(patients))
	_ = tw.Flush()
}
