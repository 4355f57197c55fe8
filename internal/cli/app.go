package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"splitbook/internal/amqp"
	"splitbook/internal/core"
	"splitbook/internal/ledger"
	applog "splitbook/internal/log"
	"splitbook/internal/services"
	"splitbook/internal/sheets"
)

// ErrUsage marks errors caused by malformed command lines.
var ErrUsage = errors.New("usage")

// EventConsumer delivers ledger change events.
type EventConsumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEventMessage) error) error
}

// App runs one splitbook command against a loaded ledger.
type App struct {
	Store     *ledger.Store
	Snapshots services.SnapshotLoader
	// NewExporter is nil when no spreadsheet is configured.
	NewExporter func(ctx context.Context) (sheets.SnapshotExporter, error)
	// Consumer is nil when AMQP is disabled.
	Consumer    EventConsumer
	Out         io.Writer
	RecentLimit int
	Now         func() time.Time
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Run dispatches args[0] to its command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "contact":
		return a.runContact(ctx, args[1:])
	case "expense":
		return a.runExpense(ctx, args[1:])
	case "summary":
		return a.summary()
	case "recent":
		return a.recent(args[1:])
	case "categories":
		for _, c := range core.DefaultCategories {
			fmt.Fprintln(a.Out, c)
		}
		return nil
	case "export":
		return a.export(ctx)
	case "watch":
		return a.watch(ctx)
	case "help", "-h", "--help":
		PrintUsage(a.Out)
		return nil
	default:
		return usageError("unknown command %q", args[0])
	}
}

// PrintUsage writes the command summary to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: splitbook <command> [flags]

Commands:
  contact add -name NAME [-email E] [-phone P] [-note N]
  contact list
  contact rm ID
  expense add -desc D -amount A [-date YYYY-MM-DD] [-category C] [-notes N]
              (-contact ID [-status pending|reminded|settled] | -personal)
  expense list [-contact ID] [-status S]
  expense status ID pending|reminded|settled
  expense rm ID
  summary
  recent [-n N]
  categories
  export
  watch
`)
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError("%s: %v", fs.Name(), err)
	}
	return nil
}

func ignoreHelp(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (a *App) runContact(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("contact: missing subcommand")
	}
	switch args[0] {
	case "add":
		return ignoreHelp(a.addContact(ctx, args[1:]))
	case "list", "ls":
		return a.listContacts()
	case "rm", "remove":
		if len(args) != 2 {
			return usageError("contact rm: expected exactly one id")
		}
		if a.Store.RemoveContact(ctx, args[1]) {
			fmt.Fprintf(a.Out, "Removed contact %s\n", args[1])
		} else {
			fmt.Fprintf(a.Out, "No contact with id %s\n", args[1])
		}
		return nil
	default:
		return usageError("contact: unknown subcommand %q", args[0])
	}
}

func (a *App) addContact(ctx context.Context, args []string) error {
	fs := a.flagSet("contact add")
	name := fs.String("name", "", "contact name (required)")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	note := fs.String("note", "", "free-form note")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *name == "" && fs.NArg() > 0 {
		*name = strings.Join(fs.Args(), " ")
	}
	if err := core.ValidateContactNote(*note); err != nil {
		return err
	}

	c, err := a.Store.AddContact(ctx, core.ContactInput{
		Name:  *name,
		Email: *email,
		Phone: *phone,
		Note:  *note,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Added contact %s (%s)\n", c.Name, c.ID)
	return nil
}

func (a *App) listContacts() error {
	totals := a.Store.ContactTotals()
	if len(totals) == 0 {
		fmt.Fprintln(a.Out, "No contacts yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tTOTAL\tPENDING\tSETTLED\tREMINDERS\tOPEN")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			t.Contact.ID, t.Contact.Name, dash(t.Contact.Email), dash(t.Contact.Phone),
			core.FormatAmount(t.Stats.Total),
			core.FormatAmount(t.Stats.Pending),
			core.FormatAmount(t.Stats.Settled),
			t.Stats.Reminders, t.Stats.OutstandingCount)
	}
	return tw.Flush()
}

func (a *App) runExpense(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("expense: missing subcommand")
	}
	switch args[0] {
	case "add":
		return ignoreHelp(a.addExpense(ctx, args[1:]))
	case "list", "ls":
		return ignoreHelp(a.listExpenses(args[1:]))
	case "status":
		if len(args) != 3 {
			return usageError("expense status: expected an id and a status")
		}
		return a.setStatus(ctx, args[1], args[2])
	case "rm", "remove":
		if len(args) != 2 {
			return usageError("expense rm: expected exactly one id")
		}
		if a.Store.RemoveExpense(ctx, args[1]) {
			fmt.Fprintf(a.Out, "Removed expense %s\n", args[1])
		} else {
			fmt.Fprintf(a.Out, "No expense with id %s\n", args[1])
		}
		return nil
	default:
		return usageError("expense: unknown subcommand %q", args[0])
	}
}

func (a *App) addExpense(ctx context.Context, args []string) error {
	fs := a.flagSet("expense add")
	desc := fs.String("desc", "", "description (required)")
	amount := fs.String("amount", "", "amount, dot or comma decimals (required)")
	date := fs.String("date", "", "calendar date YYYY-MM-DD (default today)")
	category := fs.String("category", core.DefaultCategory, "category")
	notes := fs.String("notes", "", "free-form notes")
	personal := fs.Bool("personal", false, "personal expense, nobody owes it")
	contact := fs.String("contact", "", "id of the contact who owes the expense")
	status := fs.String("status", "", "initial status of a shared expense")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	value, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("amount %q: %w", *amount, err)
	}
	if err := core.ValidateNotes(*notes); err != nil {
		return err
	}
	var st core.Status
	if *status != "" {
		if st, err = core.ParseStatus(*status); err != nil {
			return err
		}
	}
	if *date == "" {
		*date = core.FormatDate(a.now())
	}

	e, err := a.Store.AddExpense(ctx, core.ExpenseInput{
		Description: *desc,
		Amount:      value,
		Date:        *date,
		Category:    *category,
		Notes:       *notes,
		IsPersonal:  *personal,
		ContactID:   *contact,
		Status:      st,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Added expense %s: %s %s (%s)\n",
		e.ID, e.Description, core.FormatAmount(e.Amount), e.Status.Label())
	return nil
}

func (a *App) listExpenses(args []string) error {
	fs := a.flagSet("expense list")
	contact := fs.String("contact", "", "only expenses owed by this contact id")
	status := fs.String("status", "", "only expenses in this status")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var want core.Status
	if *status != "" {
		st, err := core.ParseStatus(*status)
		if err != nil {
			return err
		}
		want = st
	}

	var rows []core.Expense
	for _, e := range a.Store.Expenses() {
		if *contact != "" && e.ContactID != *contact {
			continue
		}
		if want != "" && e.Status != want {
			continue
		}
		rows = append(rows, e)
	}
	return a.printExpenses(rows)
}

func (a *App) setStatus(ctx context.Context, id, raw string) error {
	st, err := core.ParseStatus(raw)
	if err != nil {
		return err
	}
	found, err := a.Store.UpdateExpenseStatus(ctx, id, st)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(a.Out, "No expense with id %s\n", id)
		return nil
	}
	fmt.Fprintf(a.Out, "Expense %s is now %s\n", id, st.Label())
	return nil
}

func (a *App) summary() error {
	o := a.Store.Overview()
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total spent\t%s\n", core.FormatAmount(o.TotalSpent))
	fmt.Fprintf(tw, "Outstanding\t%s\n", core.FormatAmount(o.Outstanding))
	fmt.Fprintf(tw, "Settled\t%s\n", core.FormatAmount(o.Settled))
	fmt.Fprintf(tw, "Reminders sent\t%d\n", o.RemindersSent)
	fmt.Fprintf(tw, "Expenses\t%d\n", o.ExpenseCount)
	fmt.Fprintf(tw, "Contacts\t%d\n", o.ContactCount)
	return tw.Flush()
}

func (a *App) recent(args []string) error {
	limit := a.RecentLimit
	if limit <= 0 {
		limit = ledger.DefaultRecentLimit
	}
	fs := a.flagSet("recent")
	n := fs.Int("n", limit, "number of expenses to show")
	if err := parseFlags(fs, args); err != nil {
		return ignoreHelp(err)
	}
	return a.printExpenses(a.Store.RecentExpenses(*n))
}

func (a *App) printExpenses(expenses []core.Expense) error {
	if len(expenses) == 0 {
		fmt.Fprintln(a.Out, "No expenses.")
		return nil
	}

	names := make(map[string]string)
	for _, c := range a.Store.Contacts() {
		names[c.ID] = c.Name
	}

	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tCATEGORY\tAMOUNT\tCONTACT\tSTATUS\tREMINDERS")
	for _, e := range expenses {
		who := names[e.ContactID]
		switch {
		case e.IsPersonal:
			who = "personal"
		case who == "":
			who = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			e.ID, e.Date, e.Description, e.Category, core.FormatAmount(e.Amount),
			who, e.Status.Label(), e.ReminderCount)
	}
	return tw.Flush()
}

func (a *App) exportService(ctx context.Context) (*services.ExportService, error) {
	if a.NewExporter == nil {
		return nil, errors.New("export requires GOOGLE_SPREADSHEET_ID and service account credentials")
	}
	exporter, err := a.NewExporter(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewExportService(a.Snapshots, exporter), nil
}

func (a *App) export(ctx context.Context) error {
	svc, err := a.exportService(ctx)
	if err != nil {
		return err
	}
	rows, err := svc.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Exported %d expenses\n", rows)
	return nil
}

// watch prints every ledger event until ctx is cancelled. When a spreadsheet
// is configured each applied change also triggers a re-export.
func (a *App) watch(ctx context.Context) error {
	if a.Consumer == nil {
		return errors.New("watch requires AMQP_URL")
	}

	var exports *services.ExportService
	if a.NewExporter != nil {
		svc, err := a.exportService(ctx)
		if err != nil {
			return err
		}
		exports = svc
	}

	logger := applog.FromContext(ctx).WithComponent(applog.ComponentWatch)
	logger.Info("Watching ledger events",
		applog.FieldOperation, applog.OpConsume,
		"export", exports != nil)

	events := make(chan *amqp.LedgerEventMessage)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		return a.Consumer.ConsumeLedgerEvents(gctx, func(ctx context.Context, msg *amqp.LedgerEventMessage) error {
			logger.Debug("Received ledger event", applog.FieldChange, msg.Kind, applog.FieldFound, msg.Found)
			if exports != nil {
				if err := exports.HandleLedgerEvent(ctx, msg); err != nil {
					return err
				}
			}
			select {
			case events <- msg:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	g.Go(func() error {
		for msg := range events {
			fmt.Fprintf(a.Out, "%s  %-22s  %s  contacts=%d expenses=%d\n",
				msg.Timestamp.UTC().Format(time.RFC3339), msg.Kind, dash(msg.EntityID),
				msg.Contacts, msg.Expenses)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Stopped watching", applog.FieldOperation, applog.OpShutdown)
	return nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
